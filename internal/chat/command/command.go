// Package command 负责解析并执行客户端发来的文本行。
package command

import (
	"strconv"
	"strings"

	"github.com/lk2023060901/roomchat-go/internal/network/session"
	"github.com/lk2023060901/roomchat-go/pkg/util/merr"
)

// Kind 标识一行输入被解析后的类型。
type Kind int

const (
	KindNone Kind = iota // 空行，忽略
	KindChat             // 普通聊天消息
	KindQuit
	KindTest
	KindNick
	KindRoom
	KindWhisper
	KindList
	KindHelp
	KindUnknown
)

var kindNames = map[Kind]string{
	KindNone:    "none",
	KindChat:    "chat",
	KindQuit:    "quit",
	KindTest:    "test",
	KindNick:    "nick",
	KindRoom:    "room",
	KindWhisper: "whisper",
	KindList:    "list",
	KindHelp:    "help",
	KindUnknown: "unknown",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

var commandKinds = map[string]Kind{
	"/quit":    KindQuit,
	"/test":    KindTest,
	"/nick":    KindNick,
	"/room":    KindRoom,
	"/whisper": KindWhisper,
	"/list":    KindList,
	"/help":    KindHelp,
}

// Command 为解析后的一行输入。
//
// 各字段只在对应的 Kind 下有意义：
//   - Name：KindNick 的新名字（已截断），KindUnknown 的原始命令名；
//   - Text：KindChat 的消息正文，KindWhisper 的私聊内容；
//   - Room：KindRoom 的目标房间；
//   - Target：KindWhisper 的目标会话，非数字 ID 解析为 0。
type Command struct {
	Kind   Kind
	Name   string
	Text   string
	Room   int
	Target uint64
}

// Parse 解析一行已去除行尾的输入。
//
// 参数错误时返回 merr.ErrBadCommandArgs，未知命令返回 merr.ErrUnknownCommand，
// 两种情况下返回的 Command 均带有 Kind，供调用方决定回复内容。
func Parse(line string) (Command, error) {
	if line == "" {
		return Command{Kind: KindNone}, nil
	}
	if line[0] != '/' {
		return Command{Kind: KindChat, Text: line}, nil
	}

	tokens := tokenize(line)
	name, args := tokens[0], tokens[1:]
	kind, ok := commandKinds[name]
	if !ok {
		return Command{Kind: KindUnknown, Name: name}, merr.WrapErrUnknownCommand(name)
	}

	cmd := Command{Kind: kind}
	switch kind {
	case KindNick:
		if len(args) == 0 {
			return cmd, merr.WrapErrBadCommandArgs(name, "name is empty")
		}
		cmd.Name = session.TruncateName(strings.Join(args, " "))

	case KindRoom:
		if len(args) == 0 {
			return cmd, merr.WrapErrBadCommandArgs(name, "room is missing")
		}
		room, err := strconv.Atoi(args[0])
		if err != nil || !session.ValidRoom(room) {
			return cmd, merr.WrapErrBadCommandArgs(name, "room must be a number in [1,5]", args[0])
		}
		cmd.Room = room

	case KindWhisper:
		if len(args) < 2 {
			return cmd, merr.WrapErrBadCommandArgs(name, "message is empty")
		}
		// 非数字 ID 视为 0，该 ID 永远不会被分配。
		target, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			target = 0
		}
		cmd.Target = target
		cmd.Text = strings.Join(args[1:], " ")
	}
	return cmd, nil
}

// tokenize 按空格切分，跳过连续空格产生的空串。
func tokenize(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' '
	})
}
