// Package json 基于 bytedance/sonic 提供与 encoding/json 兼容的编解码入口。
package json

import (
	gojson "encoding/json"

	"github.com/bytedance/sonic"
)

var (
	json = sonic.ConfigStd

	Marshal       = json.Marshal
	Unmarshal     = json.Unmarshal
	MarshalIndent = json.MarshalIndent
	NewDecoder    = json.NewDecoder
	NewEncoder    = json.NewEncoder
)

type (
	RawMessage = gojson.RawMessage
	Number     = gojson.Number
)
