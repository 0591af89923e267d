package logging

import (
	"fmt"
	"strings"
)

// Sink receives user-visible log lines, one line per call.
// It is invoked synchronously on the goroutine performing the operation.
type Sink func(line string)

// Tag is the conventional prefix of a log line used by presentation layers for color coding.
type Tag string

// Supported tags.
const (
	TagInfo     Tag = "[INFO]"
	TagSuccess  Tag = "[SUCESSO]"
	TagError    Tag = "[ERRO]"
	TagWarning  Tag = "[AVISO]"
	TagProgress Tag = ">>>"
	TagBanner   Tag = "---"
	TagUpload   Tag = "[UPLOAD]"
	TagDownload Tag = "[DOWNLOAD]"
	TagFile     Tag = "[DLL]"
)

var allTags = []Tag{TagInfo, TagSuccess, TagError, TagWarning, TagProgress, TagBanner, TagUpload, TagDownload, TagFile}

// ParseTag returns the tag a line starts with, or an empty tag if the line is untagged.
func ParseTag(line string) Tag {
	for _, t := range allTags {
		if strings.HasPrefix(line, string(t)) {
			return t
		}
	}

	return ""
}

// Discard is a sink that drops all lines.
func Discard(string) {}

// Broadcast returns a sink that forwards every line to all given sinks.
func Broadcast(sinks ...Sink) Sink {
	return func(line string) {
		for _, s := range sinks {
			if s != nil {
				s(line)
			}
		}
	}
}

// Emitter formats tagged lines and writes them to a Sink.
// The zero value discards everything.
type Emitter struct {
	sink Sink
}

// NewEmitter returns an Emitter writing to the provided sink. A nil sink discards output.
func NewEmitter(s Sink) *Emitter {
	return &Emitter{sink: s}
}

// Emit formats a line with the given tag and writes it to the sink.
func (e *Emitter) Emit(tag Tag, msg string, args ...interface{}) {
	if e == nil || e.sink == nil {
		return
	}

	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	if tag == TagBanner {
		e.sink(fmt.Sprintf("%v %v %v", tag, msg, tag))
		return
	}

	e.sink(string(tag) + " " + msg)
}

// Infof emits an [INFO] line.
func (e *Emitter) Infof(msg string, args ...interface{}) { e.Emit(TagInfo, msg, args...) }

// Successf emits a success line.
func (e *Emitter) Successf(msg string, args ...interface{}) { e.Emit(TagSuccess, msg, args...) }

// Errorf emits an error line.
func (e *Emitter) Errorf(msg string, args ...interface{}) { e.Emit(TagError, msg, args...) }

// Warnf emits a warning line.
func (e *Emitter) Warnf(msg string, args ...interface{}) { e.Emit(TagWarning, msg, args...) }

// Progressf emits a progress marker line.
func (e *Emitter) Progressf(msg string, args ...interface{}) { e.Emit(TagProgress, msg, args...) }

// Bannerf emits an operation banner.
func (e *Emitter) Bannerf(msg string, args ...interface{}) { e.Emit(TagBanner, msg, args...) }
