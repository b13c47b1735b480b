package starknetrpc

import "time"

type EventListener interface {
	OnRequest(method string, took time.Duration, err error)
}

type SelectiveListener struct {
	OnRequestCb func(method string, took time.Duration, err error)
}

func (l *SelectiveListener) OnRequest(method string, took time.Duration, err error) {
	if l.OnRequestCb != nil {
		l.OnRequestCb(method, took, err)
	}
}
