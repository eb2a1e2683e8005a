package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"ecomx/internal/chat"  // Command dispatcher
	"ecomx/internal/media" // Attachment references

	"github.com/gin-gonic/gin" // Gin web framework
)

// maxMedia caps the attachments read from one webhook call
const maxMedia = 10

// WhatsAppHandler receives the provider's form-encoded webhook and replies with TwiML
func WhatsAppHandler(d *chat.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		msg := chat.Message{
			From: c.PostForm("From"), // whatsapp:+<number>
			Body: c.PostForm("Body"), // Command text
		}
		n, _ := strconv.Atoi(c.DefaultPostForm("NumMedia", "0"))
		n = max(0, min(n, maxMedia))
		for i := 0; i < n; i++ {
			idx := strconv.Itoa(i)
			url := c.PostForm("MediaUrl" + idx)
			if url == "" {
				continue
			}
			msg.Media = append(msg.Media, media.Item{URL: url, ContentType: c.PostForm("MediaContentType" + idx)})
		}
		reply := d.Handle(c.Request.Context(), msg)
		c.XML(http.StatusOK, chat.NewReply(reply))
	}
}
