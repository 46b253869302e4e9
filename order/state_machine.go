package order

import "fmt"

// StateTransition 状态转换
type StateTransition struct {
	From Status
	To   Status
}

// StateMachine 母单状态机：pending → active → {completed, cancelled, failed}，
// 终态不允许再转换。
type StateMachine struct {
	transitions map[StateTransition]bool
}

// DefaultStateMachine 进程内共享的状态机实例（转换表启动后只读）。
var DefaultStateMachine = NewStateMachine()

// NewStateMachine 创建新的状态机
func NewStateMachine() *StateMachine {
	sm := &StateMachine{transitions: make(map[StateTransition]bool)}
	legal := []StateTransition{
		{StatusPending, StatusActive},
		{StatusPending, StatusCancelled},
		{StatusPending, StatusFailed},

		{StatusActive, StatusCompleted},
		{StatusActive, StatusCancelled},
		{StatusActive, StatusFailed},
	}
	for _, t := range legal {
		sm.transitions[t] = true
	}
	return sm
}

// ValidateTransition 验证状态转换是否合法
func (sm *StateMachine) ValidateTransition(from, to Status) error {
	// 相同状态允许（幂等性）
	if from == to {
		return nil
	}
	if !sm.transitions[StateTransition{From: from, To: to}] {
		return fmt.Errorf("illegal state transition: %s -> %s", from, to)
	}
	return nil
}

// IsTerminal 判断是否是终态
func (sm *StateMachine) IsTerminal(status Status) bool {
	switch status {
	case StatusCompleted, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// CanCancel 判断当前状态下是否可以撤单
func (sm *StateMachine) CanCancel(status Status) bool {
	switch status {
	case StatusPending, StatusActive:
		return true
	default:
		return false
	}
}
