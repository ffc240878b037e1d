package executor

import (
	"sync"

	"github.com/caffeineduck/modshim/hostfunc"
)

var (
	testExecutor     *Executor
	testExecutorOnce sync.Once
	testExecutorErr  error
)

// GetTestExecutor returns an executor shared across tests, so the
// interpreter is compiled once per test binary.
func GetTestExecutor() (*Executor, error) {
	testExecutorOnce.Do(func() {
		testExecutor, testExecutorErr = New(hostfunc.NewRegistry())
	})
	return testExecutor, testExecutorErr
}

// CloseTestExecutor closes the shared test executor.
func CloseTestExecutor() {
	if testExecutor != nil {
		testExecutor.Close()
		testExecutor = nil
		testExecutorOnce = sync.Once{}
	}
}
