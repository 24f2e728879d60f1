// Package framing turns a byte stream of newline-delimited JSON into frames.
//
// Two policies are supported. FramingStrict treats every non-empty line as one
// complete JSON object; a line that does not decode is reported on its own and
// the next line starts fresh. FramingAccumulate joins consecutive lines until
// the buffered text decodes, which tolerates peers that pretty-print objects
// across several lines. Under both policies the buffered text is bounded by a
// maximum size: exceeding it yields a single decode error and a cleared buffer.
package framing
