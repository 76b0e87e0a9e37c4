package help

import (
	"net/http"

	runcontext "dockout/frontend/shared/context"
)

type PageData struct {
	Stage    string
	VepToken string
}

func HelpPageQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := runcontext.GetRunFromContext(r.Context())
		if !ok {
			http.Error(w, "no workflow run", http.StatusInternalServerError)
			return
		}

		data := PageData{
			Stage:    string(run.Stage()),
			VepToken: run.VepToken(),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := HelpPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render help page", http.StatusInternalServerError)
			return
		}
	}
}
