package filter

import "testing"

func TestIsTarget(t *testing.T) {
	f := NewDefault()

	cases := map[string]bool{
		"api.openai.com":             true,
		"chatgpt.com":                true,
		"claude.ai":                  true,
		"api.anthropic.com":          true,
		"gemini.google.com":          true,
		"www.google.com":             false,
		"example.com":                false,
		"":                           false,
		"API.OPENAI.COM":             false, // case-sensitive
		"openai.com.attacker.net":    true,  // substring semantics
		"generativelanguage.example": false,
	}
	for host, want := range cases {
		if got := f.IsTarget(host); got != want {
			t.Errorf("IsTarget(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestIsTargetEmptyConfig(t *testing.T) {
	f := New(nil, nil)
	if f.IsTarget("api.openai.com") {
		t.Error("filter with no targets should match nothing")
	}
}

func TestIsTargetIgnoresEmptyEntries(t *testing.T) {
	f := New([]string{""}, nil)
	if f.IsTarget("anything.com") {
		t.Error("empty target must not match every host")
	}
}

func TestProvider(t *testing.T) {
	f := NewDefault()

	cases := map[string]string{
		"api.openai.com":                    "openai",
		"chatgpt.com":                       "openai",
		"claude.ai":                         "anthropic",
		"generativelanguage.googleapis.com": "google",
		"llm.internal.corp":                 "llm.internal.corp",
	}
	for host, want := range cases {
		if got := f.Provider(host); got != want {
			t.Errorf("Provider(%q) = %q, want %q", host, got, want)
		}
	}
}

func TestIsEligibleBody(t *testing.T) {
	cases := []struct {
		method  string
		hasText bool
		want    bool
	}{
		{"POST", true, true},
		{"POST", false, false},
		{"GET", true, false},
		{"PUT", true, false},
		{"post", true, false},
	}
	for _, tc := range cases {
		if got := IsEligibleBody(tc.method, tc.hasText); got != tc.want {
			t.Errorf("IsEligibleBody(%q, %v) = %v, want %v", tc.method, tc.hasText, got, tc.want)
		}
	}
}

func TestIsText(t *testing.T) {
	if !IsText([]byte(`{"prompt":"hi"}`)) {
		t.Error("JSON body should be text")
	}
	if IsText(nil) || IsText([]byte{}) {
		t.Error("empty body is not text")
	}
	if IsText([]byte{0x1f, 0x8b, 0x08, 0x00, 0xff}) {
		t.Error("gzip bytes should not be text")
	}
}
