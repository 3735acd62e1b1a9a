package server

// mDNS announcement of the virtual reader
const (
	MDNSServiceType = "_icreader._tcp"
	MDNSDomain      = "local."
)

// The answer-to-reset the reader reports for inserted cards, with its mask.
const (
	ATR     = "3B8F8001804F0CA000000306030001000000006A"
	ATRMask = "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF"
)

// WebSocket message types
const (
	WSMessageTypeHello = "hello"
	WSMessageTypeEvent = "event"
)
