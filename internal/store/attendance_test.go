package store

import (
	"image"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAndReadAttendance(t *testing.T) {
	dir := t.TempDir()
	records := []Record{
		{Enrollment: "42", Name: "Ada Lovelace"},
		{Enrollment: "43", Name: "Grace Hopper"},
	}

	path, err := WriteAttendance(dir, "Maths", "2026-08-30", "10-15-00", records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "Maths_2026-08-30_10-15-00.csv" {
		t.Errorf("unexpected file name: %s", filepath.Base(path))
	}
	if filepath.Base(filepath.Dir(path)) != "Maths" {
		t.Errorf("expected per-subject directory, got %s", filepath.Dir(path))
	}

	got, err := ReadAttendance(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0] != records[0] || got[1] != records[1] {
		t.Errorf("unexpected records: %v", got)
	}
}

func TestWriteAttendance_CollisionSuffix(t *testing.T) {
	dir := t.TempDir()
	records := []Record{{Enrollment: "42", Name: "Ada"}}

	first, err := WriteAttendance(dir, "Maths", "2026-08-30", "10-15-00", records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := WriteAttendance(dir, "Maths", "2026-08-30", "10-15-00", records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first == second {
		t.Fatal("expected distinct file for same subject and second")
	}
	if !strings.HasSuffix(second, "_2.csv") {
		t.Errorf("expected numeric suffix, got %s", second)
	}

	subject, date, timeOfDay, err := DecodeAttendanceName(second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Maths" || date != "2026-08-30" || timeOfDay != "10-15-00" {
		t.Errorf("suffixed file should decode to the same fields, got %s %s %s", subject, date, timeOfDay)
	}
}

func TestListAttendanceFiles(t *testing.T) {
	dir := t.TempDir()
	records := []Record{{Enrollment: "42", Name: "Ada"}}

	if _, err := WriteAttendance(dir, "Maths", "2026-08-30", "09-00-00", records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := WriteAttendance(dir, "Maths", "2026-08-30", "11-00-00", records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := WriteAttendance(dir, "Physics", "2026-08-30", "10-00-00", records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	maths, err := ListAttendanceFiles(dir, "Maths")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(maths) != 2 {
		t.Fatalf("expected 2 files for Maths, got %d", len(maths))
	}
	if !strings.Contains(maths[0], "09-00-00") || !strings.Contains(maths[1], "11-00-00") {
		t.Errorf("expected chronological order, got %v", maths)
	}

	all, err := ListAttendanceFiles(dir, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 files in total, got %d", len(all))
	}
}

func TestListAttendanceFiles_MissingDir(t *testing.T) {
	files, err := ListAttendanceFiles(filepath.Join(t.TempDir(), "nope"), "Maths")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected empty list, got %v", files)
	}
}

func TestSampleSet_WriteSequence(t *testing.T) {
	dir := t.TempDir()
	set, err := NewSampleSet(dir, 42, "Ada Lovelace")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	crop := image.NewGray(image.Rect(0, 0, 8, 8))
	first, err := set.Write(crop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := set.Write(crop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if filepath.Base(first) != "Ada-Lovelace_42_1.jpg" {
		t.Errorf("unexpected first sample name: %s", filepath.Base(first))
	}
	if filepath.Base(second) != "Ada-Lovelace_42_2.jpg" {
		t.Errorf("unexpected second sample name: %s", filepath.Base(second))
	}
	if set.Count() != 2 {
		t.Errorf("expected count 2, got %d", set.Count())
	}

	enrollment, err := DecodeSampleEnrollment(first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enrollment != 42 {
		t.Errorf("expected enrollment 42, got %d", enrollment)
	}
}

func TestListSampleFiles(t *testing.T) {
	dir := t.TempDir()
	set, err := NewSampleSet(dir, 42, "Ada")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	crop := image.NewGray(image.Rect(0, 0, 8, 8))
	if _, err := set.Write(crop); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := set.Write(crop); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	files, err := ListSampleFiles(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 sample files, got %d", len(files))
	}
}

func TestListSampleFiles_MissingRoot(t *testing.T) {
	files, err := ListSampleFiles(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected empty list, got %v", files)
	}
}
