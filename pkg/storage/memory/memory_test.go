package memory

import (
	"testing"

	"github.com/lifedex/lifedex/pkg/storage"
)

func TestMemoryStoreSuite(t *testing.T) {
	suite := &storage.StoreTestSuite{
		NewStore: func(t *testing.T) storage.Store {
			return NewMemoryStore()
		},
	}
	suite.RunAllTests(t)
}
