// ABOUTME: Striped key locks serialize writes to the same external identity
// ABOUTME: Distinct keys usually map to distinct stripes and proceed in parallel

package reconcile

import (
	"hash/fnv"
	"sync"
)

const stripeCount = 64

type keyLocks struct {
	stripes [stripeCount]sync.Mutex
}

func (k *keyLocks) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &k.stripes[h.Sum32()%stripeCount]
	m.Lock()
	return m.Unlock
}
