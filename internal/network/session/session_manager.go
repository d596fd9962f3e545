package session

// SessionManager 维护当前所有在线会话的索引，同时负责分配会话 ID。
//
// 职责说明：
//   - 只负责会话的注册、查询和移除，不直接关闭底层连接；
//   - 会话数量受容量限制，达到上限时拒绝注册；
//   - 业务层基于 SessionManager 实现广播、按 ID 定向发送等能力。
type SessionManager interface {
	// Register 分配下一个会话 ID，调用 build 创建会话并注册。
	//
	// 要求：
	//   - ID 分配与插入在同一临界区内完成，ID 单调递增且不复用；
	//   - 已达容量上限时返回 merr.ErrCapacityExceeded，且不消耗 ID。
	Register(build func(id uint64) Session) (Session, error)

	// Get 根据 session id 查找会话。
	Get(id uint64) (sess Session, ok bool)

	// Unregister 从管理器中移除指定 id 的会话。
	//
	// 说明：
	//   - 仅删除索引，不负责调用 sess.Close()；
	//   - 会话不存在时返回 false。
	Unregister(id uint64) bool

	// Range 按 ID 升序遍历当前会话的一致性快照。
	//
	// 快照在读锁内获取，回调在锁外执行；fn 返回 false 时中断遍历。
	Range(fn func(sess Session) bool)

	// Snapshot 返回按 ID 升序排列的会话快照。
	Snapshot() []Session

	// Count 返回当前已注册的会话数量。
	Count() int

	// Cap 返回容量上限。
	Cap() int
}
