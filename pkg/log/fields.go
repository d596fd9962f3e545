package log

import (
	"go.uber.org/zap"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
	FieldNameSessionID = "sessionID"
	FieldNameRemote    = "remote"
	FieldNameRoom      = "room"
	FieldNameStage     = "stage"
)

// FieldModule 返回一个包含模块名的 zap 字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent 返回一个包含组件名的 zap 字段。
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldSessionID 返回一个包含会话编号的 zap 字段。
func FieldSessionID(id uint64) zap.Field {
	return zap.Uint64(FieldNameSessionID, id)
}

func FieldRemote(addr string) zap.Field {
	return zap.String(FieldNameRemote, addr)
}

func FieldRoom(room int) zap.Field {
	return zap.Int(FieldNameRoom, room)
}

// FieldStage 标记错误发生在连接生命周期的哪个阶段。
func FieldStage(stage string) zap.Field {
	return zap.String(FieldNameStage, stage)
}
