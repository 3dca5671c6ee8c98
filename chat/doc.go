// Package chat contains the optional Twitch chat announcer.
//
// The announcer connects to Twitch IRC for TWITCH_CHANNEL and posts raffle
// announcements produced by the Discord bot. Viewers can type !gemuki to get the
// current key statistics.
//
// Credentials: the IRC client requires a bot username and an OAuth token with
// chat:read/chat:edit scopes (TWITCH_BOT_USERNAME, TWITCH_OAUTH_TOKEN). The
// announcer is not started when any of the three variables is missing.
package chat
