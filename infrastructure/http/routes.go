package http

import (
	"github.com/go-chi/chi/v5"

	exportspage "dockout/frontend/exports"
	"dockout/frontend/gross"
	"dockout/frontend/help"
	"dockout/frontend/loading"
	"dockout/frontend/picking"
	"dockout/frontend/transfer"
)

// RegisterStageRoutes registers the four workflow stages and the help page.
func (s *Server) RegisterStageRoutes(r chi.Router) chi.Router {
	s.RegisterLoadingRoutes(r)
	s.RegisterTransferRoutes(r)
	s.RegisterPickingRoutes(r)
	s.RegisterGrossRoutes(r)

	r.Get("/help", help.HelpPageQueryHandler())
	return r
}

func (s *Server) RegisterLoadingRoutes(r chi.Router) {
	r.Get("/loading", loading.LoadingPageQueryHandler())
	r.Post("/loading", loading.LoadTokenCommandHandler(s.DB, s.Services.Tokens, s.Services.Defaults.Loading, s.Audit))
}

func (s *Server) RegisterTransferRoutes(r chi.Router) {
	r.Get("/transfer", transfer.TransferPageQueryHandler())
	r.Post("/transfer/all", transfer.TransferAllCommandHandler(s.Services.Transfer))
	r.Post("/transfer/complete", transfer.CompleteTransferCommandHandler(s.DB, s.Audit))

	r.Route("/transfer/{doNo}", func(r chi.Router) {
		r.Post("/edit", transfer.ToggleEditCommandHandler())
		r.Post("/submit", transfer.SubmitCommandHandler(s.Services.Transfer))
		r.Post("/items/{itemID}", transfer.EditItemCommandHandler())
		r.Post("/items/{itemID}/duplicate", transfer.DuplicateItemCommandHandler())
		r.Post("/items/{itemID}/delete", transfer.DeleteItemCommandHandler())
	})
}

func (s *Server) RegisterPickingRoutes(r chi.Router) {
	r.Get("/picking", picking.PickingPageQueryHandler())
	r.Post("/picking/all", picking.CompleteAllCommandHandler(s.Services.Picking))
	r.Post("/picking/complete", picking.CompletePickingCommandHandler(s.DB, s.Audit))
	r.Post("/picking/{doNo}/confirm", picking.ConfirmPickingCommandHandler(s.Services.Picking))
}

func (s *Server) RegisterGrossRoutes(r chi.Router) {
	r.Get("/gross", gross.GrossPageQueryHandler())
	r.Get("/gross/slip.pdf", gross.LoadingSlipQueryHandler())
	r.Post("/gross/fetch", gross.FetchCommandHandler(s.Services.Gross))
	r.Post("/gross/submit", gross.SubmitCommandHandler(s.Services.Gross))
	r.Post("/gross/retry", gross.RetryCommandHandler(s.Services.Gross))
	r.Post("/gross/start-new", gross.StartNewCommandHandler(s.Services.Gross))
}

func (s *Server) RegisterExportRoutes(r chi.Router) {
	r.Get("/exports", exportspage.ExportsPageQueryHandler(s.DB))
	r.Get("/exports/picking-logs.csv", exportspage.PickingLogsCSVHandler(s.DB))
	r.Get("/exports/picking-logs.xlsx", exportspage.PickingLogsXLSXHandler(s.DB))
	r.Get("/exports/transfer-logs.csv", exportspage.TransferLogsCSVHandler(s.DB))
}
