package chat

import "github.com/futig/ragchat/internal/entity"

func toSessionDTO(session *entity.ChatSession, messages []entity.ChatMessage) *entity.SessionDTO {
	dto := &entity.SessionDTO{
		ID:        session.ID,
		Title:     session.Title,
		Status:    session.Status,
		Model:     session.Model,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}

	for _, msg := range messages {
		dto.Messages = append(dto.Messages, toMessageDTO(msg))
	}

	return dto
}

func toMessageDTO(msg entity.ChatMessage) entity.MessageDTO {
	return entity.MessageDTO{
		ID:        msg.ID,
		Role:      msg.Role,
		Content:   msg.Content,
		Sources:   msg.Sources,
		CreatedAt: msg.CreatedAt,
	}
}
