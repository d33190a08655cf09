// Package ffprobe wraps the ffprobe binary for the one question the parity
// engine asks of a video: how long is it.
//
// Probe accepts local paths and http(s) URLs; request headers such as a
// session cookie can be forwarded for authenticated media.
package ffprobe
