package permissions

import "testing"

const (
	guildID  = int64(100)
	userID   = int64(42)
	roleA    = int64(201)
	roleB    = int64(202)
	heldNone = int64(999)
)

func TestBase(t *testing.T) {
	tests := []struct {
		name       string
		userRoles  []int64
		guildRoles map[int64]uint64
		want       uint64
	}{
		{
			name:       "everyone only",
			userRoles:  nil,
			guildRoles: map[int64]uint64{guildID: ViewChannel},
			want:       ViewChannel,
		},
		{
			name:      "roles are unioned",
			userRoles: []int64{roleA, roleB},
			guildRoles: map[int64]uint64{
				guildID: ViewChannel,
				roleA:   ReadMessageHistory,
				roleB:   Connect,
			},
			want: ViewChannel | ReadMessageHistory | Connect,
		},
		{
			name:      "administrator grants everything",
			userRoles: []int64{roleA},
			guildRoles: map[int64]uint64{
				guildID: 0,
				roleA:   Administrator,
			},
			want: All,
		},
		{
			name:       "unknown roles contribute nothing",
			userRoles:  []int64{heldNone},
			guildRoles: map[int64]uint64{guildID: ViewChannel},
			want:       ViewChannel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Base(tt.userRoles, tt.guildRoles, guildID)
			if got != tt.want {
				t.Errorf("Base() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestChannel(t *testing.T) {
	tests := []struct {
		name       string
		base       uint64
		overwrites []Overwrite
		userRoles  []int64
		want       uint64
	}{
		{
			name:       "no overwrites keeps base",
			base:       ViewChannel | ReadMessageHistory,
			overwrites: nil,
			want:       ViewChannel | ReadMessageHistory,
		},
		{
			name: "everyone deny removes view",
			base: ViewChannel | ReadMessageHistory,
			overwrites: []Overwrite{
				{ID: guildID, Type: 0, Deny: ViewChannel},
			},
			want: ReadMessageHistory,
		},
		{
			name: "role allow restores after everyone deny",
			base: ReadMessageHistory,
			overwrites: []Overwrite{
				{ID: guildID, Type: 0, Deny: ViewChannel},
				{ID: roleA, Type: 0, Allow: ViewChannel},
			},
			userRoles: []int64{roleA},
			want:      ViewChannel | ReadMessageHistory,
		},
		{
			name: "role denies union before role allows",
			base: ViewChannel | Connect,
			overwrites: []Overwrite{
				{ID: roleA, Type: 0, Deny: ViewChannel},
				{ID: roleB, Type: 0, Allow: ViewChannel},
			},
			userRoles: []int64{roleA, roleB},
			// Allow wins within the role layer: denies clear first, allows set after.
			want: ViewChannel | Connect,
		},
		{
			name: "member overwrite outranks role overwrite",
			base: ViewChannel,
			overwrites: []Overwrite{
				{ID: roleA, Type: 0, Allow: ViewChannel},
				{ID: userID, Type: 1, Deny: ViewChannel},
			},
			userRoles: []int64{roleA},
			want:      0,
		},
		{
			name: "overwrite for role user lacks is ignored",
			base: ViewChannel,
			overwrites: []Overwrite{
				{ID: heldNone, Type: 0, Deny: ViewChannel},
			},
			userRoles: []int64{roleA},
			want:      ViewChannel,
		},
		{
			name: "member overwrite for other user is ignored",
			base: ViewChannel,
			overwrites: []Overwrite{
				{ID: userID + 1, Type: 1, Deny: ViewChannel},
			},
			want: ViewChannel,
		},
		{
			name: "administrator bypasses overwrites",
			base: All,
			overwrites: []Overwrite{
				{ID: guildID, Type: 0, Deny: ViewChannel},
			},
			want: All,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Channel(userID, tt.base, tt.overwrites, tt.userRoles, guildID)
			if got != tt.want {
				t.Errorf("Channel() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

// Adding an allow at the highest-priority layer that mentions a bit can
// only grant it; adding a deny there can only remove it.
func TestChannelMonotonicity(t *testing.T) {
	base := ViewChannel | ReadMessageHistory

	without := Channel(userID, base, nil, nil, guildID)
	withAllow := Channel(userID, base, []Overwrite{{ID: userID, Type: 1, Allow: Connect}}, nil, guildID)
	if withAllow&without != without {
		t.Error("adding a member allow removed previously held bits")
	}
	if withAllow&Connect == 0 {
		t.Error("member allow did not grant the bit")
	}

	withDeny := Channel(userID, base, []Overwrite{{ID: userID, Type: 1, Deny: ViewChannel}}, nil, guildID)
	if withDeny&ViewChannel != 0 {
		t.Error("member deny did not remove the bit")
	}
	if withDeny&^without != 0 {
		t.Error("adding a member deny granted new bits")
	}
}

func TestCanAccessChannel(t *testing.T) {
	tests := []struct {
		name        string
		perms       uint64
		channelType int
		want        bool
	}{
		{"text with view", ViewChannel, 0, true},
		{"text without view", ReadMessageHistory, 0, false},
		{"voice needs connect", ViewChannel, 2, false},
		{"voice with connect", ViewChannel | Connect, 2, true},
		{"stage needs connect", ViewChannel, 13, false},
		{"stage with connect", ViewChannel | Connect, 13, true},
		{"forum with view", ViewChannel, 15, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccessChannel(tt.perms, tt.channelType); got != tt.want {
				t.Errorf("CanAccessChannel(%#x, %d) = %v, want %v", tt.perms, tt.channelType, got, tt.want)
			}
		})
	}
}
