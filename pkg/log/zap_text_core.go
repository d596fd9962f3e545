// Copyright 2019 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewTextCore 创建一个将日志写入指定 WriteSyncer 的 Core。
//
// disableErrorVerbose 为 true 时，error 字段只输出 err.Error()，
// 不再输出 cockroachdb/errors 附带的 errorVerbose 堆栈。
func NewTextCore(enc zapcore.Encoder, ws zapcore.WriteSyncer, enab zapcore.LevelEnabler, disableErrorVerbose bool) zapcore.Core {
	core := zapcore.NewCore(enc, ws, enab)
	if !disableErrorVerbose {
		return core
	}
	return &plainErrorCore{Core: core}
}

// plainErrorCore 在写出前把 ErrorType 字段改写为普通字符串字段。
type plainErrorCore struct {
	zapcore.Core
}

func (c *plainErrorCore) With(fields []zapcore.Field) zapcore.Core {
	return &plainErrorCore{Core: c.Core.With(plainErrorFields(fields))}
}

func (c *plainErrorCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *plainErrorCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, plainErrorFields(fields))
}

func plainErrorFields(fields []zapcore.Field) []zapcore.Field {
	var out []zapcore.Field
	for i, f := range fields {
		if f.Type != zapcore.ErrorType {
			continue
		}
		if out == nil {
			out = make([]zapcore.Field, len(fields))
			copy(out, fields)
		}
		if err, ok := f.Interface.(error); ok && err != nil {
			out[i] = zap.String(f.Key, err.Error())
		}
	}
	if out == nil {
		return fields
	}
	return out
}
