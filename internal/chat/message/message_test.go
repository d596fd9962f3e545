package message

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lk2023060901/roomchat-go/internal/network/session"
)

func TestFormats(t *testing.T) {
	assert.Equal(t, "> [alice] hi there\r\n", Chat("alice", "hi there"))
	assert.Equal(t, "> user [101] is now known as [bob]\r\n", Rename("101", "bob"))
	assert.Equal(t, "> [bob] is now in room number 2\r\n", RoomChanged("bob", 2))
	assert.Equal(t, "> [bob][whisper] secret\r\n", Whisper("bob", "secret"))
	assert.Equal(t, "[100] has joined\r\n", Joined("100"))
	assert.Equal(t, "[alice] has left\r\n", Left("alice"))
}

func TestList(t *testing.T) {
	out := List([]session.Info{
		{ID: 100, Name: "alice", Room: 1},
		{ID: 101, Name: "bob", Room: 2},
	})
	assert.Equal(t, "=============================\nClients in server: 2\r\n"+
		"[100] alice - room: 1\r\n"+
		"[101] bob - room: 2\r\n"+
		"=============================\r\n", out)

	assert.Equal(t, "=============================\nClients in server: 0\r\n=============================\r\n", List(nil))
}

func TestHelp(t *testing.T) {
	assert.Contains(t, Help, ">  /whisper  <user id> <message> Send private message         <\r\n")
	assert.Equal(t, "\r\n> ", Help[len(Help)-4:])
}
