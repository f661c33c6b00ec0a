package handler

import (
	"net/http"

	"github.com/monmlabs/monm-server/internal/ctxkeys"
	"github.com/monmlabs/monm-server/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q parameter is required")
		return
	}

	users, err := h.userService.Search(query, 20)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	self := ctxkeys.User(r.Context())
	results := make([]userResponse, 0, len(users))
	for _, u := range users {
		if u.ID == self.ID {
			continue
		}
		results = append(results, toUserResponse(u))
	}

	writeJSON(w, http.StatusOK, results)
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	writeJSON(w, http.StatusOK, toUserResponse(user))
}
