package forking

import "time"

type EventListener interface {
	OnRemoteRequest(kind Kind, took time.Duration, err error)
	OnCacheHit(kind Kind, persisted bool)
	OnCacheMiss(kind Kind)
}

type SelectiveListener struct {
	OnRemoteRequestCb func(kind Kind, took time.Duration, err error)
	OnCacheHitCb      func(kind Kind, persisted bool)
	OnCacheMissCb     func(kind Kind)
}

func (l *SelectiveListener) OnRemoteRequest(kind Kind, took time.Duration, err error) {
	if l.OnRemoteRequestCb != nil {
		l.OnRemoteRequestCb(kind, took, err)
	}
}

func (l *SelectiveListener) OnCacheHit(kind Kind, persisted bool) {
	if l.OnCacheHitCb != nil {
		l.OnCacheHitCb(kind, persisted)
	}
}

func (l *SelectiveListener) OnCacheMiss(kind Kind) {
	if l.OnCacheMissCb != nil {
		l.OnCacheMissCb(kind)
	}
}
