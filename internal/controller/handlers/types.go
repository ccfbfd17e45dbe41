package handlers

import (
	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/service"
	"github.com/orlandoalexander/educatch/internal/session"
)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	services *service.Services
	// sessions не nil только в демо-режиме
	sessions    *session.Manager
	tutors      map[int64]int64
	demoTutorID int64
	logger      *zap.Logger
}

// NewHandlers создаёт обработчик команд; tutors связывает чат с тьютором
func NewHandlers(
	services *service.Services,
	sessions *session.Manager,
	tutors map[int64]int64,
	demoTutorID int64,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		services:    services,
		sessions:    sessions,
		tutors:      tutors,
		demoTutorID: demoTutorID,
		logger:      logger,
	}
}
