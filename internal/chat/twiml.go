package chat

import "encoding/xml"

// Reply is the TwiML envelope carrying one text message
type Reply struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// NewReply wraps text in a TwiML envelope
func NewReply(text string) Reply {
	return Reply{Message: text}
}
