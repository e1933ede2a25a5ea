package task

import "testing"

func TestToken(t *testing.T) {
	token := NewToken()
	if token.Cancelled() {
		t.Error("Expected new token to be live")
	}

	token.Cancel()
	if !token.Cancelled() {
		t.Error("Expected token to report cancellation")
	}

	// Repeated requests are idempotent.
	token.Cancel()
	if !token.Cancelled() {
		t.Error("Expected token to stay cancelled")
	}
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		expected string
		status   Status
	}{
		{"running", StatusRunning},
		{"succeeded", StatusSucceeded},
		{"failed", StatusFailed},
		{"cancelled", StatusCancelled},
		{"unknown", Status(99)},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.expected {
			t.Errorf("Expected %q, got %q", tt.expected, got)
		}
	}
}

func TestStatus_Finished(t *testing.T) {
	tests := []struct {
		status   Status
		expected bool
	}{
		{StatusRunning, false},
		{StatusSucceeded, true},
		{StatusFailed, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.status.Finished(); got != tt.expected {
			t.Errorf("Expected Finished() of %v to be %v, got %v", tt.status, tt.expected, got)
		}
	}
}

func TestFunc_Name(t *testing.T) {
	unnamed := &Func[int]{
		Fn: func(token *Token) (int, error) {
			return 1, nil
		},
	}
	if got := unnamed.Name(); got != "func" {
		t.Errorf("Expected default name %q, got %q", "func", got)
	}

	named := &Func[int]{
		TaskName: "resize",
		Fn: func(token *Token) (int, error) {
			return 1, nil
		},
	}
	if got := named.Name(); got != "resize" {
		t.Errorf("Expected %q, got %q", "resize", got)
	}
}

func TestFunc_Run(t *testing.T) {
	f := &Func[int]{
		TaskName: "double",
		Fn: func(token *Token) (int, error) {
			return 42, nil
		},
	}

	out, err := f.Run(NewToken())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != 42 {
		t.Errorf("Expected 42, got %d", out)
	}
}
