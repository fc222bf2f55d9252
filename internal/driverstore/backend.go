// Package driverstore enumerates and changes the driver package store
// through interchangeable backends.
package driverstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
	"github.com/breeze-rmm/drvstore/internal/logging"
)

var log = logging.L("driverstore")

// Backend identifiers.
const (
	IDNative  = "native"
	IDDism    = "dism"
	IDPnputil = "pnputil"
)

// ErrUnsupported is returned when a backend lacks the capability an
// operation asked for.
var ErrUnsupported = errors.New("operation not supported by backend")

// Target is the system a backend operates on.
type Target struct {
	Online    bool   `json:"online" yaml:"online"`
	ImagePath string `json:"imagePath,omitempty" yaml:"imagePath,omitempty"`
}

func (t Target) String() string {
	if t.Online {
		return "running system"
	}
	return "offline image " + t.ImagePath
}

// Backend is one way of reaching the driver store. Enumerate returns fully
// annotated records; Delete and Add report their outcome in a Result and
// never retry.
type Backend interface {
	ID() string
	Name() string
	Capabilities() driverpkg.Capabilities
	Target() Target
	Enumerate(ctx context.Context) ([]driverpkg.PackageRecord, error)
	Delete(ctx context.Context, rec driverpkg.PackageRecord, force bool) Result
	Add(ctx context.Context, infPath string, install bool) Result
}

// Result is the outcome of one Delete, Add or export. Callers branch on OK;
// Detail carries diagnostic text such as captured tool output and Err the
// classified cause.
type Result struct {
	OK     bool   `json:"ok" yaml:"ok"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
	Err    error  `json:"-" yaml:"-"`
}

// Succeeded builds a successful Result.
func Succeeded(detail string) Result {
	return Result{OK: true, Detail: detail}
}

// Failed builds a failed Result.
func Failed(err error, detail string) Result {
	return Result{Err: err, Detail: detail}
}

// Error renders the failure cause, or "" for success.
func (r Result) Error() string {
	if r.OK {
		return ""
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return "failed"
}

func unsupported(b Backend, what string) Result {
	return Failed(fmt.Errorf("%s: %s: %w", b.ID(), what, ErrUnsupported), "")
}

func logOutcome(b Backend, op, subject string, r Result) {
	l := logging.WithBackend(log, b.ID())
	if r.OK {
		l.Info(op+" succeeded", logging.KeyPublishedName, subject)
		return
	}
	l.Warn(op+" failed", logging.KeyPublishedName, subject, logging.KeyError, r.Error())
}
