package exception

import "errors"

var (
	ErrEngineNilGateway   = errors.New("engine: nil gateway")
	ErrEngineNilPublisher = errors.New("engine: nil publisher")
	ErrEngineNilScheduler = errors.New("engine: nil scheduler")
)

var (
	ErrScheduleUnknownAddress = errors.New("schedule: unknown destination address")
	ErrScheduleStopped        = errors.New("schedule: scheduler stopped")
)

var (
	ErrGatewayUnknownOrder = errors.New("gateway: unknown order")
)

var (
	ErrPublishBufferFull = errors.New("publish: buffer full")
	ErrPublishClosed     = errors.New("publish: publisher closed")
)
