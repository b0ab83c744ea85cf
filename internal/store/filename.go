// Package store owns all local durable state: the face sample datasets, the
// student roster, per-subject attendance files and the pending sync log.
// Metadata embedded in file names goes through the encode/decode pairs in
// this file; nothing else in the system splits these names ad hoc.
package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrMalformedName reports a file name that does not follow the expected
// encoding and cannot be decoded.
var ErrMalformedName = errors.New("malformed file name")

// Wire formats for the date and time fields of attendance file names.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15-04-05"
)

// SanitizeName folds a student or subject name into its file-name-safe
// form: diacritics removed, separators that would collide with the encoding
// replaced by dashes (e.g. "Jiří Nový" -> "Jiri-Novy").
func SanitizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, _ := transform.String(t, name)
	folded = strings.TrimSpace(folded)
	folded = strings.ReplaceAll(folded, " ", "-")
	folded = strings.ReplaceAll(folded, "_", "-")
	return folded
}

// NormalizeEnrollment brings an enrollment token into its canonical string
// form for roster comparison.
func NormalizeEnrollment(enrollment string) string {
	return strings.TrimSpace(enrollment)
}

// StudentDirName encodes the per-student dataset directory name.
func StudentDirName(enrollment int64, name string) string {
	return fmt.Sprintf("%d_%s", enrollment, SanitizeName(name))
}

// EncodeSampleName encodes a face sample file name as
// {name}_{enrollment}_{sequence}.jpg.
func EncodeSampleName(name string, enrollment int64, sequence int) string {
	return fmt.Sprintf("%s_%d_%d.jpg", SanitizeName(name), enrollment, sequence)
}

// DecodeSampleEnrollment extracts the enrollment ID from a sample file name.
func DecodeSampleEnrollment(path string) (int64, error) {
	base := filepath.Base(path)
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return 0, fmt.Errorf("%w: %s", ErrMalformedName, base)
	}
	enrollment, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformedName, base, err)
	}
	return enrollment, nil
}

// EncodeAttendanceName encodes an attendance file name as
// {subject}_{date}_{time}.csv.
func EncodeAttendanceName(subject, date, timeOfDay string) string {
	return fmt.Sprintf("%s_%s_%s.csv", SanitizeName(subject), date, timeOfDay)
}

// DecodeAttendanceName extracts subject, date and time from an attendance
// file name. Trailing fields beyond the first three (such as a collision
// suffix) are ignored.
func DecodeAttendanceName(path string) (subject, date, timeOfDay string, err error) {
	base := strings.TrimSuffix(filepath.Base(path), ".csv")
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return "", "", "", fmt.Errorf("%w: %s", ErrMalformedName, filepath.Base(path))
	}
	return parts[0], parts[1], parts[2], nil
}
