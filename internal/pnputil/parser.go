// Package pnputil drives the legacy PnP utility: its argument forms, its
// enumeration text and the success heuristics for its delete/add output.
package pnputil

import (
	"bufio"
	"strings"
	"time"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
)

// pnputil -e output, one block per package, values localized and not
// column-aligned; a value may wrap onto the line after its key:
//
//	Microsoft PnP Utility
//
//	Published name :            oem0.inf
//	Driver package provider :   Microsoft
//	Class :                     Printers
//	Driver version and date :   06/21/2006 6.1.7600.16385
//	Signer name :               Microsoft Windows
type parseState int

const (
	stateHeader parseState = iota
	statePublishedName
	stateProvider
	stateClass
	stateDateVersion
	stateSigner
)

const keyDelimiter = ":"

type parser struct {
	dateOrder DateOrder

	state   parseState
	sawKey  bool
	current driverpkg.PackageRecord
	records []driverpkg.PackageRecord
}

// Option configures Parse.
type Option func(*parser)

// WithDateOrder tells Parse how the host orders day and month. Without it
// only dates that are unambiguous on their own are accepted.
func WithDateOrder(order DateOrder) Option {
	return func(p *parser) { p.dateOrder = order }
}

// Parse converts enumeration output into package records in input order.
// Fields the text does not carry are left at their unknown values.
func Parse(output string, opts ...Option) []driverpkg.PackageRecord {
	p := &parser{state: stateHeader}
	for _, opt := range opts {
		opt(p)
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.feed(strings.TrimRight(scanner.Text(), "\r"))
	}
	p.flush()

	return p.records
}

func (p *parser) feed(line string) {
	blank := strings.TrimSpace(line) == ""

	if p.state == stateHeader {
		if blank {
			p.state = statePublishedName
		}
		return
	}

	if blank {
		p.flush()
		p.state = statePublishedName
		p.sawKey = false
		return
	}

	p.process(line)
}

func (p *parser) process(line string) {
	idx := strings.Index(line, keyDelimiter)

	if p.sawKey {
		p.sawKey = false
		if idx >= 0 {
			// The pending field never got its value; the line belongs to the next one.
			p.advance()
			p.process(line)
			return
		}
		p.accept(strings.TrimSpace(line))
		return
	}

	if idx < 0 {
		return
	}

	value := strings.TrimSpace(line[idx+len(keyDelimiter):])
	if value == "" {
		p.sawKey = true
		return
	}
	p.accept(value)
}

func (p *parser) accept(value string) {
	switch p.state {
	case statePublishedName:
		if p.current.PublishedName != "" {
			p.flush()
		}
		p.current.PublishedName = value
	case stateProvider:
		p.current.Provider = value
	case stateClass:
		p.current.Class = value
	case stateDateVersion:
		p.current.Date, p.current.Version = parseDateVersion(value, p.dateOrder)
	case stateSigner:
		p.current.SignerName = value
	}
	p.advance()
}

func (p *parser) advance() {
	if p.state == stateSigner {
		p.state = statePublishedName
		return
	}
	p.state++
}

func (p *parser) flush() {
	if p.current.PublishedName != "" {
		p.records = append(p.records, p.current)
	}
	p.current = driverpkg.PackageRecord{}
}

// parseDateVersion splits "date version" on the first space. Either half
// that fails to parse stays at its zero value.
func parseDateVersion(value string, order DateOrder) (time.Time, driverpkg.Version) {
	datePart, versionPart, _ := strings.Cut(strings.TrimSpace(value), " ")
	date := parseDate(datePart, order)

	version, err := driverpkg.ParseVersion(versionPart)
	if err != nil {
		version = driverpkg.Version{}
	}
	return date, version
}
