package pipeline

import (
	"testing"

	"athena/interview/internal/models"
)

func words(spec ...float64) []models.TranscriptWord {
	var out []models.TranscriptWord
	for i := 0; i+1 < len(spec); i += 2 {
		out = append(out, models.TranscriptWord{Text: "w", Start: spec[i], End: spec[i+1]})
	}
	return out
}

func TestSegmentTranscriptAssignsByMidpoint(t *testing.T) {
	boundaries := []models.SegmentBoundary{
		{PromptID: "A", StartTime: 0, EndTime: 12000},
		{PromptID: "B", StartTime: 12000, EndTime: 27000},
		{PromptID: "C", StartTime: 27000, EndTime: 40000},
	}
	transcript := models.Transcript{Words: []models.TranscriptWord{
		{Text: "first", Start: 1, End: 1.5},
		{Text: "straddle", Start: 11.8, End: 12.4},
		{Text: "second", Start: 13, End: 13.5},
		{Text: "late", Start: 41, End: 41.5},
	}}

	segs := SegmentTranscript(transcript, boundaries)
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	if segs[0].TranscriptText != "first" {
		t.Fatalf("unexpected segment A text %q", segs[0].TranscriptText)
	}
	if segs[1].TranscriptText != "straddle second" {
		t.Fatalf("unexpected segment B text %q", segs[1].TranscriptText)
	}
	if segs[2].TranscriptText != "late" || segs[2].StartTimeSeconds != 27 || segs[2].EndTimeSeconds != 40 {
		t.Fatalf("unexpected segment C %+v", segs[2])
	}
}

func TestSegmentTranscriptFlagsLowSpeech(t *testing.T) {
	boundaries := []models.SegmentBoundary{
		{PromptID: "talkative", StartTime: 0, EndTime: 30000},
		{PromptID: "silent", StartTime: 30000, EndTime: 90000},
		{PromptID: "short", StartTime: 90000, EndTime: 93000},
	}
	var spoken []float64
	for i := 0; i < 60; i++ {
		s := float64(i) * 0.5
		spoken = append(spoken, s, s+0.2)
	}
	spoken = append(spoken, 31, 31.2, 50, 50.2)
	transcript := models.Transcript{Words: words(spoken...)}

	segs := SegmentTranscript(transcript, boundaries)
	if segs[0].LowSpeech || segs[0].WordCount != 60 {
		t.Fatalf("talkative segment should not be flagged: %+v", segs[0])
	}
	if !segs[1].LowSpeech || segs[1].WordCount != 2 {
		t.Fatalf("silent segment should be flagged: %+v", segs[1])
	}
	if !segs[2].LowSpeech {
		t.Fatalf("short empty segment should be flagged: %+v", segs[2])
	}
}

func TestSegmentTranscriptNoBoundaries(t *testing.T) {
	if segs := SegmentTranscript(models.Transcript{}, nil); segs != nil {
		t.Fatalf("expected nil segments, got %+v", segs)
	}
}
