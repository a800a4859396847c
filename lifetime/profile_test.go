package lifetime

import (
	"errors"
	"testing"
	"time"
)

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{
			name:    "stale before expire",
			profile: Profile{Stale: time.Minute, Expire: time.Hour},
			wantErr: false,
		},
		{
			name:    "stale equals expire",
			profile: Profile{Stale: time.Minute, Expire: time.Minute},
			wantErr: false,
		},
		{
			name:    "stale after expire",
			profile: Profile{Stale: time.Hour, Expire: time.Minute},
			wantErr: true,
		},
		{
			name:    "never stale never expires",
			profile: Profile{},
			wantErr: false,
		},
		{
			name:    "never expires with staleness",
			profile: Profile{Stale: time.Minute},
			wantErr: false,
		},
		{
			name:    "expires without staleness",
			profile: Profile{Expire: time.Minute},
			wantErr: false,
		},
		{
			name:    "negative stale",
			profile: Profile{Stale: -time.Second},
			wantErr: true,
		},
		{
			name:    "negative expire",
			profile: Profile{Expire: -time.Second},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidProfile) {
				t.Errorf("Validate() error should wrap ErrInvalidProfile, got %v", err)
			}
		})
	}
}

func TestProfile_Windows(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	p := Profile{Stale: time.Minute, Expire: time.Hour}
	if got, want := p.StaleAt(created), created.Add(time.Minute); !got.Equal(want) {
		t.Errorf("StaleAt() = %v, want %v", got, want)
	}
	if got, want := p.ExpireAt(created), created.Add(time.Hour); !got.Equal(want) {
		t.Errorf("ExpireAt() = %v, want %v", got, want)
	}

	// Zero windows never elapse: both instants stay the zero time.
	unbounded := Profile{}
	if !unbounded.StaleAt(created).IsZero() {
		t.Errorf("StaleAt() for zero window should be zero time, got %v", unbounded.StaleAt(created))
	}
	if !unbounded.ExpireAt(created).IsZero() {
		t.Errorf("ExpireAt() for zero window should be zero time, got %v", unbounded.ExpireAt(created))
	}
}

func TestBuiltins_Monotonic(t *testing.T) {
	// Windows must strictly increase from "seconds" through "weeks";
	// "max" has no windows at all.
	order := []string{"seconds", "minutes", "hours", "days", "weeks"}
	table := builtins()

	for i := 1; i < len(order); i++ {
		prev, cur := table[order[i-1]], table[order[i]]
		if cur.Stale <= prev.Stale {
			t.Errorf("stale window %s (%v) should exceed %s (%v)", order[i], cur.Stale, order[i-1], prev.Stale)
		}
		if cur.Expire <= prev.Expire {
			t.Errorf("expire window %s (%v) should exceed %s (%v)", order[i], cur.Expire, order[i-1], prev.Expire)
		}
	}

	max := table["max"]
	if max.Stale != 0 || max.Expire != 0 {
		t.Errorf("max profile should never go stale or expire, got %+v", max)
	}
}

func TestBuiltins_StaggeredStaleness(t *testing.T) {
	// An entry under "days" is still fresh at an instant where the same
	// entry under "seconds" has long gone stale.
	table := builtins()
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	at := created.Add(time.Hour)

	seconds := table["seconds"].StaleAt(created)
	days := table["days"].StaleAt(created)

	if !at.After(seconds) {
		t.Errorf("seconds entry should be stale at %v (staleAt %v)", at, seconds)
	}
	if !at.Before(days) {
		t.Errorf("days entry should still be fresh at %v (staleAt %v)", at, days)
	}
}

func TestBuiltins_AllValid(t *testing.T) {
	for name, p := range builtins() {
		if err := p.Validate(); err != nil {
			t.Errorf("builtin %q should validate, got %v", name, err)
		}
	}
}

func TestProfile_Tighten(t *testing.T) {
	tests := []struct {
		name string
		a, b Profile
		want Profile
	}{
		{
			name: "shorter windows win",
			a:    Profile{Stale: time.Hour, Expire: 24 * time.Hour},
			b:    Profile{Stale: time.Minute, Expire: time.Hour},
			want: Profile{Stale: time.Minute, Expire: time.Hour},
		},
		{
			name: "mixed shorter windows",
			a:    Profile{Stale: time.Minute, Expire: 24 * time.Hour},
			b:    Profile{Stale: time.Hour, Expire: time.Hour},
			want: Profile{Stale: time.Minute, Expire: time.Hour},
		},
		{
			name: "finite beats unbounded",
			a:    Profile{},
			b:    Profile{Stale: time.Minute, Expire: time.Hour},
			want: Profile{Stale: time.Minute, Expire: time.Hour},
		},
		{
			name: "both unbounded stay unbounded",
			a:    Profile{},
			b:    Profile{},
			want: Profile{},
		},
		{
			name: "blocking is sticky",
			a:    Profile{Stale: time.Minute, Refresh: RefreshBlocking},
			b:    Profile{Stale: time.Hour},
			want: Profile{Stale: time.Minute, Refresh: RefreshBlocking},
		},
		{
			name: "stale clamped to shorter expire",
			a:    Profile{Stale: time.Hour},
			b:    Profile{Expire: time.Minute},
			want: Profile{Stale: time.Minute, Expire: time.Minute},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Tighten(tt.b)
			if got != tt.want {
				t.Errorf("Tighten() = %+v, want %+v", got, tt.want)
			}
			if err := got.Validate(); err != nil {
				t.Errorf("Tighten() result should validate, got %v", err)
			}
		})
	}
}

func TestRefreshPolicy_String(t *testing.T) {
	tests := []struct {
		policy RefreshPolicy
		want   string
	}{
		{RefreshBackground, "background"},
		{RefreshBlocking, "blocking"},
		{RefreshPolicy(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.policy.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
