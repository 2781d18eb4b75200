package websocket

import (
	"github.com/rs/zerolog/log"

	"gigtalk/infrastructure/ws"
	"gigtalk/internal/entity"
	"gigtalk/internal/metrics"
)

// HubPublisher fans already-persisted events out to the room registry.
// Every publish is best-effort: encode or delivery problems are logged
// and dropped, never surfaced to the sender as a send failure.
type HubPublisher struct {
	hub ws.IHub
}

func NewHubPublisher(hub ws.IHub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) PublishMessage(message entity.Message) {
	payload, err := encodeEvent(EventMessage, message)
	if err != nil {
		metrics.DeliveryFailuresTotal.Inc()
		log.Error().Err(err).Str("messageId", message.Id).Msg("encode message event")
		return
	}
	p.hub.BroadcastRoom(entity.ConversationRoom(message.SenderId, message.ReceiverId), payload)
}

func (p *HubPublisher) PublishNewMessage(receiverId string, notification entity.MessageNotification) {
	payload, err := encodeEvent(EventNewMessage, notification)
	if err != nil {
		metrics.DeliveryFailuresTotal.Inc()
		log.Error().Err(err).Str("receiverId", receiverId).Msg("encode new-message event")
		return
	}
	p.hub.BroadcastRoom(entity.UserRoom(receiverId), payload)
	metrics.NotificationsTotal.Inc()
}

func (p *HubPublisher) PublishTyping(receiverId, senderId string, isTyping bool) {
	payload, err := encodeEvent(EventTyping, TypingEvent{UserId: senderId, IsTyping: isTyping})
	if err != nil {
		log.Error().Err(err).Msg("encode typing event")
		return
	}
	p.hub.BroadcastRoom(entity.UserRoom(receiverId), payload)
}

func (p *HubPublisher) PublishStopTyping(receiverId, senderId string) {
	payload, err := encodeEvent(EventStopTyping, StopTypingEvent{UserId: senderId})
	if err != nil {
		log.Error().Err(err).Msg("encode stop-typing event")
		return
	}
	p.hub.BroadcastRoom(entity.UserRoom(receiverId), payload)
}
