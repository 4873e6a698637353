package model

// ConversationPreview is the last message exchanged with one partner
type ConversationPreview struct {
	PartnerID   string  `json:"partnerId" bson:"_id"`
	LastMessage Message `json:"lastMessage" bson:"last_message"`
}
