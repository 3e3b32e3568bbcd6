package ports

import "context"

// KeyLocker serializes critical sections sharing a key, within or across processes.
type KeyLocker interface {
	// Lock blocks until the key is held or ctx ends. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
