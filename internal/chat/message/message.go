// Package message 定义聊天协议中所有发往客户端的文本格式。
//
// 所有文本均为原始字节，调用方直接写出，不做额外换行处理。
package message

import (
	"fmt"
	"strings"

	"github.com/lk2023060901/roomchat-go/internal/network/session"
)

const (
	Boop          = "> *boop*\r\n> "
	NameEmpty     = "> name cannot be empty\r\n"
	InvalidRoom   = "> invalid room, pick a number between 1 and 5.\r\n"
	MessageNull   = "> message cannot be null\r\n"
	UnknownCmd    = "> unknown command\r\n"
	HelpHint      = "> see /help for a list of commands\r\n>"
	ListSeparator = "=============================\r\n"
)

// Help 为 /help 的完整输出。
const Help = "===============================================================\r\n" +
	">  /quit     Quit chatroom                                    <\r\n" +
	">  /test     Server test                                      <\r\n" +
	">  /room     <room number> change chat room                   <\r\n" +
	">  /nick     <name> Change nickname                           <\r\n" +
	">  /whisper  <user id> <message> Send private message         <\r\n" +
	">  /list     Show active clients                              <\r\n" +
	">  /help     Show help                                        <\r\n" +
	"===============================================================\r\n> "

// Chat 为房间内的普通消息。
func Chat(name, text string) string {
	return "> [" + name + "] " + text + "\r\n"
}

// Rename 为改名通知。
func Rename(oldName, newName string) string {
	return "> user [" + oldName + "] is now known as [" + newName + "]\r\n"
}

// RoomChanged 为换房通知。
func RoomChanged(name string, room int) string {
	return fmt.Sprintf("> [%s] is now in room number %d\r\n", name, room)
}

// Whisper 为私聊消息。
func Whisper(from, text string) string {
	return "> [" + from + "][whisper] " + text + "\r\n"
}

func Joined(name string) string {
	return "[" + name + "] has joined\r\n"
}

func Left(name string) string {
	return "[" + name + "] has left\r\n"
}

// ListHeader 为 /list 的表头，count 为快照中的会话数量。
func ListHeader(count int) string {
	return fmt.Sprintf("=============================\nClients in server: %d\r\n", count)
}

// ListEntry 为 /list 中的一行。
func ListEntry(info session.Info) string {
	return fmt.Sprintf("[%d] %s - room: %d\r\n", info.ID, info.Name, info.Room)
}

// List 拼接完整的 /list 输出。
func List(infos []session.Info) string {
	var b strings.Builder
	b.WriteString(ListHeader(len(infos)))
	for _, info := range infos {
		b.WriteString(ListEntry(info))
	}
	b.WriteString(ListSeparator)
	return b.String()
}
