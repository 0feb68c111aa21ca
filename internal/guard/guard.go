// Package guard решает, можно ли показывать защищённое содержимое.
package guard

import "github.com/mmeshcher/worldcup-storefront/internal/model"

// LoginRoute — маршрут, на который отправляется неаутентифицированный пользователь.
const LoginRoute = "/login"

// Action описывает решение охранника маршрута.
type Action int

const (
	// Wait — сессия ещё восстанавливается: показывать индикатор загрузки,
	// не редиректить и не показывать защищённое содержимое.
	Wait Action = iota
	// Allow — пользователь аутентифицирован, содержимое можно показывать.
	Allow
	// Redirect — пользователь анонимен, отправить на страницу входа.
	Redirect
)

// Decision — результат проверки доступа. RedirectTo заполнен только для Redirect.
type Decision struct {
	Action     Action
	RedirectTo string
}

// CanAccessProtected — чистая функция над состоянием сессии, без побочных
// эффектов; реакция на решение (рендер, навигация) остаётся за вызывающим.
func CanAccessProtected(state model.SessionState) Decision {
	switch state.Status {
	case model.StatusAuthed:
		return Decision{Action: Allow}
	case model.StatusAnonymous:
		return Decision{Action: Redirect, RedirectTo: LoginRoute}
	default:
		return Decision{Action: Wait}
	}
}
