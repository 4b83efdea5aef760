package similarity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/himanishpuri/AcousticSimilarity/pkg/utils"
)

const (
	refSeparator    = ";"
	offsetSeparator = ":"
)

// ParseRecordingRefs parses "mbid[:offset]" tokens joined by ';'.
// Order and duplicates are preserved. The token cap applies to raw tokens,
// before any per-token parsing. A malformed or negative offset falls back
// to 0 instead of rejecting the token.
func ParseRecordingRefs(raw string, maxRecordings int) ([]RecordingRef, error) {
	if raw == "" {
		return nil, BadRequest(MsgMissingRecordingIDs)
	}

	tokens := strings.Split(raw, refSeparator)
	if maxRecordings > 0 && len(tokens) > maxRecordings {
		return nil, BadRequest(fmt.Sprintf(msgTooManyRecordings, maxRecordings))
	}

	refs := make([]RecordingRef, 0, len(tokens))
	for _, token := range tokens {
		ref, err := parseRecordingRef(token)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ParseRecordingPair parses exactly two references for pairwise comparison.
func ParseRecordingPair(raw string, maxRecordings int) (RecordingRef, RecordingRef, error) {
	refs, err := ParseRecordingRefs(raw, maxRecordings)
	if err != nil {
		return RecordingRef{}, RecordingRef{}, err
	}
	if len(refs) != 2 {
		return RecordingRef{}, RecordingRef{}, BadRequest(MsgNotTwoRecordings)
	}
	return refs[0], refs[1], nil
}

func parseRecordingRef(token string) (RecordingRef, error) {
	parts := strings.Split(token, offsetSeparator)

	mbid, err := utils.NormalizeMBID(parts[0])
	if err != nil {
		return RecordingRef{}, BadRequest(err.Error())
	}

	offset := 0
	if len(parts) > 1 {
		if n, err := strconv.Atoi(parts[1]); err == nil && n >= 0 {
			offset = n
		}
	}
	return RecordingRef{MBID: mbid, Offset: offset}, nil
}

// ParseRecordingRef builds a single reference from an mbid and an optional
// raw offset, with the same leniency as ParseRecordingRefs.
func ParseRecordingRef(mbid, offset string) (RecordingRef, error) {
	if offset == "" {
		return parseRecordingRef(mbid)
	}
	return parseRecordingRef(mbid + offsetSeparator + offset)
}
