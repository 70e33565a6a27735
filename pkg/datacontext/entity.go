// Package datacontext holds the per-entity data access layer: typed filters
// and updates, the storage gateway contract, and the contexts that persist
// through a gateway and announce every change on the event bus.
package datacontext

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"
	"time"
)

// Entity is a stored document. Implementations are pointer types embedding Base.
type Entity interface {
	GetID() string
	SetID(id string)
}

type Base struct {
	ID string `json:"id"`
}

func (b *Base) GetID() string {
	return b.ID
}

func (b *Base) SetID(id string) {
	b.ID = id
}

// EmptyID marks a unit without a parent. Root detection compares against it
// byte for byte.
const EmptyID = "000000000000000000000000"

var (
	processUnique [5]byte
	idCounter     atomic.Uint32
)

func init() {
	if _, err := rand.Read(processUnique[:]); err != nil {
		panic(err)
	}
	var seed [4]byte
	if _, err := rand.Read(seed[:]); err != nil {
		panic(err)
	}
	idCounter.Store(binary.BigEndian.Uint32(seed[:]))
}

// NewObjectID returns a 24 hex character id: 4 bytes of unix seconds, 5 bytes
// unique to the process and a 3 byte counter.
func NewObjectID() string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[0:4], uint32(time.Now().Unix()))
	copy(b[4:9], processUnique[:])
	c := idCounter.Add(1)
	b[9] = byte(c >> 16)
	b[10] = byte(c >> 8)
	b[11] = byte(c)
	return hex.EncodeToString(b[:])
}

func IsObjectID(id string) bool {
	if len(id) != 24 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
