// File: main_test.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/formcheck/cmd"
)

func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
	execute = cmd.Execute
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitFailed, exitCode(fmt.Errorf("%w: 1 of 4", cmd.ErrTestsFailed)))
	assert.Equal(t, exitError, exitCode(errors.New("failed to start browser")))
	assert.Equal(t, exitError, exitCode(fmt.Errorf("run interrupted: %w", context.Canceled)))
}

func TestMain_PropagatesExitCode(t *testing.T) {
	defer resetMocks()

	code := -1
	osExit = func(c int) { code = c }
	execute = func(context.Context) error { return cmd.ErrTestsFailed }

	main()
	assert.Equal(t, exitFailed, code)
}

func TestHandlePanic(t *testing.T) {
	defer resetMocks()

	t.Run("writes the panic log", func(t *testing.T) {
		var written []byte
		code := -1
		osWriteFile = func(name string, data []byte, _ os.FileMode) error {
			assert.Equal(t, panicLogFile, name)
			written = data
			return nil
		}
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("boom")
		}()

		assert.Equal(t, exitError, code)
		require.NotEmpty(t, written)
		assert.Contains(t, string(written), "panic: boom")
	})

	t.Run("log write failure still exits", func(t *testing.T) {
		code := -1
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only fs") }
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("boom")
		}()
		assert.Equal(t, exitError, code)
	})

	t.Run("no panic is a no-op", func(t *testing.T) {
		osExit = func(int) { t.Fatal("exit must not be called") }
		func() {
			defer handlePanic()
		}()
	})
}
