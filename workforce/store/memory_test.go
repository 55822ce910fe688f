package store_test

import (
	"testing"

	"github.com/warp/workforce-engine/workforce"
	"github.com/warp/workforce-engine/workforce/store"
	"github.com/warp/workforce-engine/workforce/storetest"
)

func TestMemoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) workforce.TxStore {
		return store.NewMemory()
	})
}
