// Package telegram implements the channel.telegram module: a text-only
// bridge between the Telegram Bot API and sigma's router.
//
//   - Inbound: text messages only, with /start and /sigma style commands
//     detected from bot_command entities (including @botname suffixes)
//   - Outbound: plain text, chunked to Telegram's 4096 byte limit
//   - Delivery modes: long-polling (default) and webhook via the gateway
//   - Typing indicators via sendChatAction while a reply is generated
//
// No external Telegram library is used; the module talks to the Bot API
// with net/http and encoding/json.
package telegram
