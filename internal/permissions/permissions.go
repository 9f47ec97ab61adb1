package permissions

import (
	"fmt"
	"math/bits"

	dg "github.com/bwmarrin/discordgo"
)

// Flag is a single named Discord permission bit.
type Flag struct {
	Name string
	Bit  int64
}

// Flags lists the documented Discord permission bits in ascending order.
var Flags = []Flag{
	{"CreateInstantInvite", dg.PermissionCreateInstantInvite},
	{"KickMembers", dg.PermissionKickMembers},
	{"BanMembers", dg.PermissionBanMembers},
	{"Administrator", dg.PermissionAdministrator},
	{"ManageChannels", dg.PermissionManageChannels},
	{"ManageGuild", dg.PermissionManageGuild},
	{"AddReactions", dg.PermissionAddReactions},
	{"ViewAuditLog", dg.PermissionViewAuditLogs},
	{"PrioritySpeaker", dg.PermissionVoicePrioritySpeaker},
	{"Stream", dg.PermissionVoiceStreamVideo},
	{"ViewChannel", dg.PermissionViewChannel},
	{"SendMessages", dg.PermissionSendMessages},
	{"SendTTSMessages", dg.PermissionSendTTSMessages},
	{"ManageMessages", dg.PermissionManageMessages},
	{"EmbedLinks", dg.PermissionEmbedLinks},
	{"AttachFiles", dg.PermissionAttachFiles},
	{"ReadMessageHistory", dg.PermissionReadMessageHistory},
	{"MentionEveryone", dg.PermissionMentionEveryone},
	{"UseExternalEmojis", dg.PermissionUseExternalEmojis},
	{"ViewGuildInsights", dg.PermissionViewGuildInsights},
	{"Connect", dg.PermissionVoiceConnect},
	{"Speak", dg.PermissionVoiceSpeak},
	{"MuteMembers", dg.PermissionVoiceMuteMembers},
	{"DeafenMembers", dg.PermissionVoiceDeafenMembers},
	{"MoveMembers", dg.PermissionVoiceMoveMembers},
	{"UseVAD", dg.PermissionVoiceUseVAD},
	{"ChangeNickname", dg.PermissionChangeNickname},
	{"ManageNicknames", dg.PermissionManageNicknames},
	{"ManageRoles", dg.PermissionManageRoles},
	{"ManageWebhooks", dg.PermissionManageWebhooks},
	{"ManageGuildExpressions", dg.PermissionManageGuildExpressions},
	{"UseApplicationCommands", dg.PermissionUseApplicationCommands},
	{"RequestToSpeak", dg.PermissionVoiceRequestToSpeak},
	{"ManageEvents", dg.PermissionManageEvents},
	{"ManageThreads", dg.PermissionManageThreads},
	{"CreatePublicThreads", dg.PermissionCreatePublicThreads},
	{"CreatePrivateThreads", dg.PermissionCreatePrivateThreads},
	{"UseExternalStickers", dg.PermissionUseExternalStickers},
	{"SendMessagesInThreads", dg.PermissionSendMessagesInThreads},
	{"UseEmbeddedActivities", dg.PermissionUseEmbeddedActivities},
	{"ModerateMembers", dg.PermissionModerateMembers},
	{"ViewCreatorMonetizationAnalytics", dg.PermissionViewCreatorMonetizationAnalytics},
	{"UseSoundboard", dg.PermissionUseSoundboard},
	{"CreateGuildExpressions", dg.PermissionCreateGuildExpressions},
	{"CreateEvents", dg.PermissionCreateEvents},
	{"UseExternalSounds", dg.PermissionUseExternalSounds},
	{"SendVoiceMessages", dg.PermissionSendVoiceMessages},
	{"SendPolls", dg.PermissionSendPolls},
	{"UseExternalApps", dg.PermissionUseExternalApps},
}

var names = func() map[int64]string {
	m := make(map[int64]string, len(Flags))
	for _, f := range Flags {
		m[f.Bit] = f.Name
	}
	return m
}()

// Has reports whether actual contains every bit of required.
func Has(actual, required int64) bool {
	return actual&required == required
}

// Difference returns the bits of required that actual lacks.
func Difference(required, actual int64) int64 {
	return required &^ actual
}

// ToArray names every bit set in p, lowest bit first. Bits without a known
// name are rendered in hex.
func ToArray(p int64) []string {
	out := make([]string, 0, bits.OnesCount64(uint64(p)))
	for u := uint64(p); u != 0; u &= u - 1 {
		bit := int64(1) << bits.TrailingZeros64(u)
		if name, ok := names[bit]; ok {
			out = append(out, name)
		} else {
			out = append(out, fmt.Sprintf("0x%x", uint64(bit)))
		}
	}
	return out
}

// Bit returns the bit for a flag name.
func Bit(name string) (int64, bool) {
	for _, f := range Flags {
		if f.Name == name {
			return f.Bit, true
		}
	}
	return 0, false
}
