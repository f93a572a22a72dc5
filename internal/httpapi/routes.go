package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/draftroom/internal/draft"
	"github.com/DoyleJ11/draftroom/internal/hub"
	"github.com/DoyleJ11/draftroom/internal/ws"
)

func SetupRoutes(svc *draft.Service, h *hub.Hub, log *zap.Logger) http.Handler {
	a := &api{svc: svc, log: log.Named("http")}
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(svc, h, log))

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", a.createSession)
		r.Post("/join", a.joinSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getSession)
			r.Post("/side", a.chooseSide)
			r.Post("/ready", a.setReady)
			r.Post("/start", a.startSession)
			r.Post("/pause", a.sessionOp((*draft.Service).PauseSession))
			r.Post("/resume", a.sessionOp((*draft.Service).ResumeSession))
			r.Post("/cancel", a.sessionOp((*draft.Service).CancelSession))
			r.Get("/score", a.score)
			r.Get("/participants", a.listParticipants)
			r.Get("/messages", a.listMessages)
			r.Post("/messages", a.sendChat)
		})
	})

	r.Route("/games/{id}", func(r chi.Router) {
		r.Get("/", a.getGame)
		r.Post("/start", a.startGame)
		r.Get("/actions", a.listActions)
		r.Post("/actions", a.submitAction)
		r.Post("/timeout", a.timeout)
		r.Post("/edit", a.beginEdit)
		r.Patch("/edit", a.editSlot)
		r.Post("/edit/done", a.finishEdit)
		r.Post("/winner", a.recordWinner)
	})
	return r
}
