package server

import "tetrisduel/game"

// InputEvent 客户端输入（意图），由服务端在 Tick 中按到达顺序解释
type InputEvent struct {
	Seq    int64      // 会话内到达序号，权威顺序
	WhenMs int64      // 客户端时间戳，仅供参考，不参与排序
	Ev     game.Event // 已识别的事件码
}
