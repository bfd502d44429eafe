// Package permissions computes channel access masks for the crawling user.
//
// The calculator is pure: it maps (user roles, guild role permissions,
// channel overwrites) to a 64-bit mask. The ingest pipeline uses it to
// skip channels it cannot read instead of provoking 403 responses.
package permissions

// Permission bit flags. Only the bits the pipeline cares about are named.
const (
	Administrator      uint64 = 1 << 3
	ViewChannel        uint64 = 1 << 10
	ReadMessageHistory uint64 = 1 << 16
	Connect            uint64 = 1 << 20
	ManageThreads      uint64 = 1 << 34
)

// All is the mask returned for administrators: every permission granted.
const All uint64 = 0xFFFFFFFFFFFFFFFF

// Channel types whose message history requires Connect in addition to
// ViewChannel.
const (
	channelTypeVoice = 2
	channelTypeStage = 13
)

// Overwrite is a channel-scoped permission overwrite.
// Type 0 targets a role, type 1 targets a member.
type Overwrite struct {
	ID    int64
	Type  int
	Allow uint64
	Deny  uint64
}

// Base computes guild-level permissions for a user from its roles.
// The @everyone role ID equals the guild ID. An Administrator bit
// anywhere in the union grants everything.
func Base(userRoles []int64, guildRoles map[int64]uint64, everyoneRoleID int64) uint64 {
	perms := guildRoles[everyoneRoleID]
	for _, id := range userRoles {
		perms |= guildRoles[id]
	}
	if perms&Administrator != 0 {
		return All
	}
	return perms
}

// Channel applies a channel's overwrites on top of base permissions.
//
// Overwrites are layered in strict priority order: the @everyone
// overwrite first, then the union of all overwrites for roles the user
// holds, then the member-specific overwrite. Within each layer denied
// bits are cleared before allowed bits are set.
func Channel(userID int64, base uint64, overwrites []Overwrite, userRoles []int64, everyoneRoleID int64) uint64 {
	if base&Administrator != 0 {
		return All
	}

	roles := make(map[int64]struct{}, len(userRoles))
	for _, id := range userRoles {
		roles[id] = struct{}{}
	}

	perms := base

	var roleAllow, roleDeny uint64
	var memberAllow, memberDeny uint64
	hasMemberOverwrite := false

	for _, ow := range overwrites {
		switch {
		case ow.Type == 0 && ow.ID == everyoneRoleID:
			perms &^= ow.Deny
			perms |= ow.Allow
		case ow.Type == 0:
			if _, held := roles[ow.ID]; held {
				roleDeny |= ow.Deny
				roleAllow |= ow.Allow
			}
		case ow.Type == 1 && ow.ID == userID:
			memberDeny = ow.Deny
			memberAllow = ow.Allow
			hasMemberOverwrite = true
		}
	}

	perms &^= roleDeny
	perms |= roleAllow

	if hasMemberOverwrite {
		perms &^= memberDeny
		perms |= memberAllow
	}

	return perms
}

// CanView reports whether the mask includes ViewChannel.
func CanView(perms uint64) bool { return perms&ViewChannel != 0 }

// CanReadHistory reports whether the mask includes ReadMessageHistory.
func CanReadHistory(perms uint64) bool { return perms&ReadMessageHistory != 0 }

// CanManageThreads reports whether the mask includes ManageThreads.
// Listing private archived threads requires it.
func CanManageThreads(perms uint64) bool { return perms&ManageThreads != 0 }

// CanConnect reports whether the mask includes Connect.
func CanConnect(perms uint64) bool { return perms&Connect != 0 }

// CanAccessChannel reports whether the channel's messages are readable.
// Voice and stage channels additionally require Connect.
func CanAccessChannel(perms uint64, channelType int) bool {
	if !CanView(perms) {
		return false
	}
	if channelType == channelTypeVoice || channelType == channelTypeStage {
		return CanConnect(perms)
	}
	return true
}
