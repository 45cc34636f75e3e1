package nnet

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// ConfigError indicates an invalid hyperparameter or a mismatch between the
// model and the data. It is raised before training starts and never recovered.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func configErr(field, format string, args ...interface{}) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NumericError indicates that a loss value became non-finite during a run.
// This is fatal: it signals optimization divergence which clamping would hide.
type NumericError struct {
	Phase string
	Epoch int
	Batch int
	Value float64
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("%s: non-finite loss %v at epoch %d batch %d",
		e.Phase, e.Value, e.Epoch, e.Batch)
}

// Wrapf annotates err with the given context, keeping the cause.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// Exit in case of error
func CheckErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
