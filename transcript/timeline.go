package transcript

import (
	"fmt"
	"strconv"
	"strings"

	acerrors "github.com/otherjamesbrown/aircheck-cli/pkg/errors"
)

// Timeline constants. Each part is assumed to occupy exactly one hour of the
// episode's virtual timeline. Recordings are split on an hour boundary by the
// archiver, so this holds for every part except the last; an unusually short
// or long part shifts every offset in the parts after it. Real part durations
// are not consulted.
const (
	// secondsPerPart is the assumed duration of one recording chunk.
	secondsPerPart = 3600

	// prerollSeconds starts playback slightly before the matched utterance.
	prerollSeconds = 30

	secondsPerDay = 24 * 3600
)

// ParseOffset parses a local "hh:mm:ss" transcript offset into seconds.
// Anything that is not three colon-separated numeric fields with in-range
// minutes and seconds fails with ErrMalformedTimestamp.
func ParseOffset(offset string) (int, error) {
	parts := strings.Split(offset, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", acerrors.ErrMalformedTimestamp, offset)
	}

	fields := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", acerrors.ErrMalformedTimestamp, offset)
		}
		fields[i] = n
	}

	hours, minutes, seconds := fields[0], fields[1], fields[2]
	if minutes > 59 || seconds > 59 {
		return 0, fmt.Errorf("%w: %q", acerrors.ErrMalformedTimestamp, offset)
	}

	return hours*3600 + minutes*60 + seconds, nil
}

// ToPlayableOffset maps a segment's local offset within its part to a
// position on the episode's full recording, formatted "h:mm:ss".
//
// The absolute position is localSeconds + partIndex*3600 - 30: parts are
// treated as concatenated one-hour chunks, and the 30-second pre-roll starts
// playback just before the matched utterance. The result is expressed as a
// wall-clock time of day, so a pre-roll that crosses 00:00:00 wraps backward
// through the previous day.
func ToPlayableOffset(localOffset string, partIndex int) (string, error) {
	local, err := ParseOffset(localOffset)
	if err != nil {
		return "", err
	}

	abs := local + partIndex*secondsPerPart - prerollSeconds
	abs %= secondsPerDay
	if abs < 0 {
		abs += secondsPerDay
	}

	return FormatClock(abs), nil
}

// FormatClock renders a second count as "h:mm:ss" (no leading zero on the
// hour field).
func FormatClock(totalSeconds int) string {
	h := totalSeconds / 3600
	m := totalSeconds % 3600 / 60
	s := totalSeconds % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// PlaybackURL appends a media-fragment start time to the recording URL, so
// that a capable player begins at the given playable offset.
func PlaybackURL(remoteURL, playableOffset string) string {
	return remoteURL + "#t=" + playableOffset
}
