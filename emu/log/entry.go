package log

import (
	"io"

	"gopkg.in/Sirupsen/logrus.v0"
)

type Level uint8

// Same ordering as logrus: lower is more severe.
const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

var disabled bool

func init() {
	logrus.SetLevel(logrus.DebugLevel)
}

// Disable turns off all logging, errors included.
func Disable() {
	disabled = true
	logrus.SetOutput(io.Discard)
}

// SetOutput redirects all log output to w.
func SetOutput(w io.Writer) {
	disabled = false
	logrus.SetOutput(w)
}

// A LogContextAdder adds fields to every log entry. It's used by components
// that carry state worth logging along (e.g. the currently selected region).
type LogContextAdder interface {
	AddLogContext(z *EntryZ)
}

var contexts []LogContextAdder

func AddContext(ctx LogContextAdder) {
	contexts = append(contexts, ctx)
}

func RemoveContext(ctx LogContextAdder) {
	for i, c := range contexts {
		if c == ctx {
			contexts = append(contexts[:i], contexts[i+1:]...)
			return
		}
	}
}

// Like a logrus.Entry, but is nullable. This allows us to selectively disable
// logging while also removing all code overhead associated with it
type Entry struct {
	mod Module
}

func (entry Entry) log() *logrus.Entry {
	final := logrus.StandardLogger().WithField("_mod", modNames[entry.mod])

	if len(contexts) == 0 {
		return final
	}

	var z EntryZ
	for _, c := range contexts {
		c.AddLogContext(&z)
	}
	fields := make(logrus.Fields, z.zfidx)
	for i := range z.zfbuf[:z.zfidx] {
		fields[z.zfbuf[i].Key] = z.zfbuf[i].Value()
	}
	return final.WithFields(fields)
}

func (entry Entry) Debugf(format string, args ...any) {
	if entry.mod.Enabled(DebugLevel) {
		entry.log().Debugf(format, args...)
	}
}

func (entry Entry) Infof(format string, args ...any) {
	if entry.mod.Enabled(InfoLevel) {
		entry.log().Infof(format, args...)
	}
}

func (entry Entry) Warnf(format string, args ...any) {
	if entry.mod.Enabled(WarnLevel) {
		entry.log().Warnf(format, args...)
	}
}

func (entry Entry) Errorf(format string, args ...any) {
	if entry.mod.Enabled(ErrorLevel) {
		entry.log().Errorf(format, args...)
	}
}

func (entry Entry) Fatalf(format string, args ...any) {
	if entry.mod.Enabled(FatalLevel) {
		entry.log().Fatalf(format, args...)
	}
}
