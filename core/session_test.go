package core

import "testing"

func TestSession_AppendAndCopy(t *testing.T) {
	s := NewSession("s1")
	s.Append(NewUserMessage("hi"))
	s.Append(NewAgentMessage("planning_expert", "plan"))

	all := s.GetMessages()
	if len(all) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(all))
	}

	orig := all[0].Text
	all[0].Text = "changed"
	if s.GetMessages()[0].Text != orig {
		t.Error("message slice should be copied on read")
	}
}

func TestSession_LastAgentText(t *testing.T) {
	s := NewSession("s2")
	if _, ok := s.LastAgentText(); ok {
		t.Error("empty session should have no agent text")
	}

	s.Append(NewUserMessage("question"))
	s.Append(NewAgentMessage("planning_expert", "plan"))
	s.Append(NewCapabilityMessage("search_expert", CapabilityCall{
		ID: NewID(), Capability: "web_search", Input: "q", Result: "result",
	}))
	s.Append(NewAgentMessage("synthesis_expert", "final report"))

	text, ok := s.LastAgentText()
	if !ok || text != "final report" {
		t.Fatalf("expected final report, got %q (ok=%v)", text, ok)
	}
}

func TestSession_Clone(t *testing.T) {
	s := NewSession("s3")
	s.Append(NewUserMessage("hi"))

	clone := s.Clone()
	if clone == s {
		t.Fatal("Clone should be a different pointer")
	}

	clone.Append(NewAgentMessage("a", "x"))
	if s.Len() != 1 {
		t.Error("original should not see clone's appended message")
	}
}

func TestSession_Status(t *testing.T) {
	s := NewSession("s4")
	if s.GetStatus() != StatusRunning {
		t.Fatalf("new session should be running, got %s", s.GetStatus())
	}
	s.SetStatus(StatusCompleted)
	if s.GetStatus() != StatusCompleted {
		t.Fatalf("expected completed, got %s", s.GetStatus())
	}
}
