package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"tokencast/handlers"
	"tokencast/internal/auth"
	"tokencast/utils"
)

type routerDeps struct {
	auth      *auth.Service
	streams   *handlers.StreamHandler
	chat      *handlers.ChatHandler
	thumbs    *handlers.ThumbnailHandler
	goals     *handlers.GoalHandler
	whitelist *handlers.WhitelistHandler
	admin     *handlers.AdminHandler
	contentFs afero.Fs
}

// buildRouter assembles the route table. Three tiers: public endpoints any
// viewer may hit, authenticated creator endpoints, and admin endpoints.
func buildRouter(deps routerDeps) *mux.Router {
	r := utils.NewRouter()

	authRoutes, avatarRoutes := deps.auth.Handlers()
	r.PathPrefix("/auth").Handler(authRoutes)
	r.PathPrefix("/avatar").Handler(avatarRoutes)

	httpFs := afero.NewHttpFs(deps.contentFs)
	r.PathPrefix("/thumbnails/").Handler(
		http.StripPrefix("/thumbnails/", http.FileServer(httpFs.Dir("/"))))

	m := deps.auth.Middleware()

	// Public tier. Heartbeats and chat posts are deliberately open: anonymous
	// viewers participate in both.
	public := r.PathPrefix("/api").Subrouter()
	public.HandleFunc("/streams/{id}", deps.streams.Get).Methods(http.MethodGet)
	public.HandleFunc("/streams/{id}/heartbeat", deps.streams.Heartbeat).Methods(http.MethodPost)
	public.HandleFunc("/streams/{id}/chat", deps.chat.List).Methods(http.MethodGet)
	public.HandleFunc("/streams/{id}/chat", deps.chat.Post).Methods(http.MethodPost)
	public.HandleFunc("/streams/{id}/chat/ws", deps.chat.Feed).Methods(http.MethodGet)
	public.HandleFunc("/streams/{id}/thumbnail", deps.thumbs.Resolve).Methods(http.MethodGet)
	public.HandleFunc("/streams/{id}/thumbnail/cache", deps.thumbs.Cache).Methods(http.MethodPost)
	public.HandleFunc("/streams/{id}/goals", deps.goals.List).Methods(http.MethodGet)
	public.HandleFunc("/streams/{id}/goals/refresh", deps.goals.Refresh).Methods(http.MethodPost)
	public.HandleFunc("/whitelist/apply", deps.whitelist.Apply).Methods(http.MethodPost)
	public.HandleFunc("/whitelist/status", deps.whitelist.Status).Methods(http.MethodGet)

	// Creator tier.
	private := r.PathPrefix("/api").Subrouter()
	private.Use(m.Auth)
	private.HandleFunc("/streams", deps.streams.Ensure).Methods(http.MethodPost)
	private.HandleFunc("/streams/{id}/live", deps.streams.SetLive).Methods(http.MethodPost)
	private.HandleFunc("/streams/{id}/title", deps.streams.UpdateTitle).Methods(http.MethodPut)
	private.HandleFunc("/streams/{id}/token", deps.streams.AttachToken).Methods(http.MethodPost)
	private.HandleFunc("/streams/{id}/token", deps.streams.DetachToken).Methods(http.MethodDelete)
	private.HandleFunc("/streams/{id}/thumbnail", deps.thumbs.Upload).Methods(http.MethodPost)
	private.HandleFunc("/streams/{id}/goals", deps.goals.Replace).Methods(http.MethodPut)
	private.HandleFunc("/streams/{id}/recording/start", deps.streams.StartRecording).Methods(http.MethodPost)
	private.HandleFunc("/streams/{id}/recording/stop", deps.streams.StopRecording).Methods(http.MethodPost)
	private.HandleFunc("/streams/{id}/chat/clear", deps.chat.Clear).Methods(http.MethodPost)
	private.HandleFunc("/streams/{id}/chat/{messageId}", deps.chat.Delete).Methods(http.MethodDelete)

	// Admin tier.
	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(m.Auth, m.AdminOnly)
	admin.HandleFunc("/streams/live", deps.admin.GetLiveStreams).Methods(http.MethodGet)
	admin.HandleFunc("/streams/sync", deps.streams.Sync).Methods(http.MethodPost)
	admin.HandleFunc("/whitelist", deps.whitelist.List).Methods(http.MethodGet)
	admin.HandleFunc("/whitelist/{id}/status", deps.whitelist.SetStatus).Methods(http.MethodPut)

	return r
}
