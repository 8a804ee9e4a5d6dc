package persona

import (
	"errors"
	"testing"
)

func valid() *Persona {
	return &Persona{ID: "siphon", Name: "Сифон", Token: "111:AAA", WebhookURL: "http://localhost/hook"}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Persona)
		wantErr bool
	}{
		{name: "complete", mutate: func(*Persona) {}},
		{name: "missing id", mutate: func(p *Persona) { p.ID = " " }, wantErr: true},
		{name: "missing token", mutate: func(p *Persona) { p.Token = "" }, wantErr: true},
		{name: "missing webhook", mutate: func(p *Persona) { p.WebhookURL = "" }, wantErr: true},
		{name: "probability above one", mutate: func(p *Persona) { p.RandomResponseProbability = 1.5 }, wantErr: true},
		{name: "negative probability", mutate: func(p *Persona) { p.RandomResponseProbability = -0.1 }, wantErr: true},
		{name: "probability bounds", mutate: func(p *Persona) { p.RandomResponseProbability = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPersona) {
					t.Errorf("Validate() = %v, want ErrInvalidPersona", err)
				}
			} else if err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}

	var nilPersona *Persona
	if !errors.Is(nilPersona.Validate(), ErrInvalidPersona) {
		t.Error("nil persona should be invalid")
	}
}

func TestCredentialPrefix(t *testing.T) {
	tests := map[string]string{
		"123456:ABC-def": "123456",
		"123456":         "123456",
		":ABC":           "",
		"":               "",
	}
	for token, want := range tests {
		p := &Persona{Token: token}
		if got := p.CredentialPrefix(); got != want {
			t.Errorf("CredentialPrefix(%q) = %q, want %q", token, got, want)
		}
	}
}

func TestString(t *testing.T) {
	p := valid()
	if got := p.String(); got != "Сифон (siphon)" {
		t.Errorf("String() = %q", got)
	}
	p.Name = ""
	if got := p.String(); got != "siphon (siphon)" {
		t.Errorf("String() without name = %q", got)
	}
}
