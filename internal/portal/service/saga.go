package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// 补偿动作的超时，不受调用方取消影响
const compensationTimeout = 30 * time.Second

type committedAction struct {
	name       string
	compensate func(ctx context.Context) error
}

// saga 记录已提交的步骤，失败时逆序执行补偿
type saga struct {
	actions []committedAction
	logger  *zap.Logger
}

func newSaga(logger *zap.Logger) *saga {
	return &saga{logger: logger}
}

// commit 登记一个已完成步骤及其补偿
func (s *saga) commit(name string, compensate func(ctx context.Context) error) {
	s.actions = append(s.actions, committedAction{name: name, compensate: compensate})
}

// committed 已登记的步骤名（按提交顺序）
func (s *saga) committed() []string {
	names := make([]string, len(s.actions))
	for i, a := range s.actions {
		names[i] = a.name
	}
	return names
}

// unwind 逆序补偿；补偿失败只记录，不改变结果
func (s *saga) unwind(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	for i := len(s.actions) - 1; i >= 0; i-- {
		a := s.actions[i]
		result := "ok"
		if err := s.runCompensation(ctx, a); err != nil {
			result = "failed"
			s.logger.Error("compensation failed", zap.String("action", a.name), zap.Error(err))
		} else {
			s.logger.Info("compensated", zap.String("action", a.name))
		}
		getMetrics().compensations.WithLabelValues(a.name, result).Inc()
	}
	s.actions = nil
}

func (s *saga) runCompensation(ctx context.Context, a committedAction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{value: r}
		}
	}()
	return a.compensate(ctx)
}
