package memory

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jecoplus/lending/internal/domain/model"
)

// ContractNumbers implements port.ContractNumberGenerator with a process-local
// counter.
type ContractNumbers struct {
	seq atomic.Int64
	now func() time.Time
}

func NewContractNumbers() *ContractNumbers {
	return &ContractNumbers{now: func() time.Time { return time.Now().UTC() }}
}

func (g *ContractNumbers) Next(_ context.Context) (string, error) {
	return model.FormatContractNo(g.now(), g.seq.Add(1)), nil
}
