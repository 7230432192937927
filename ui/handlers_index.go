package ui

import (
	"fmt"
	"net/http"
	"time"

	"openach/models"
)

const frontPageBoards = 5

type indexPage struct {
	basePage
	Boards []*models.Board
	News   []*models.ProjectNews
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	viewer := currentUser(r)
	if viewer == nil && a.site.AccountRequired {
		http.Redirect(w, r, "/accounts/login/", http.StatusSeeOther)
		return
	}

	boards, err := a.boards.Latest(r.Context(), viewer, frontPageBoards)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	news, err := a.news.ListCurrent(r.Context(), time.Now(), frontPageBoards)
	if err != nil {
		a.logger.Warn("failed to load project news: %v", err)
	}

	a.render(w, "index.html", indexPage{
		basePage: a.base(w, r),
		Boards:   boards,
		News:     news,
	})
}

type aboutPage struct {
	basePage
	DonateBitcoinAddress string
}

func (a *App) handleAbout(w http.ResponseWriter, r *http.Request) {
	a.render(w, "about.html", aboutPage{
		basePage:             a.base(w, r),
		DonateBitcoinAddress: a.site.DonateBitcoinAddress,
	})
}

func (a *App) handleRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if a.site.AccountRequired {
		fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
		return
	}
	fmt.Fprint(w, "User-agent: *\nDisallow: /accounts/\nSitemap: https://"+a.site.Domain+"/sitemap.xml\n")
}

type authPage struct {
	basePage
	Error string
	Next  string
}

func (a *App) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	a.render(w, "login.html", authPage{
		basePage: a.base(w, r),
		Next:     r.URL.Query().Get("next"),
	})
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	_, session, err := a.auth.Login(r.Context(), username, password)
	if err != nil {
		page := authPage{basePage: a.base(w, r), Error: "Invalid username or password.", Next: r.PostFormValue("next")}
		w.WriteHeader(http.StatusUnauthorized)
		a.render(w, "login.html", page)
		return
	}

	a.setSessionCookie(w, session.Token, int(a.site.SessionTTL.Seconds()))
	next := r.PostFormValue("next")
	if next == "" || next[0] != '/' {
		next = "/"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if err := a.auth.Logout(r.Context(), cookie.Value); err != nil {
			a.logger.Warn("failed to delete session: %v", err)
		}
	}
	a.setSessionCookie(w, "", -1)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	a.render(w, "signup.html", authPage{basePage: a.base(w, r)})
}

func (a *App) handleSignup(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	_, err := a.auth.Register(r.Context(), username, email, password)
	if err != nil {
		page := authPage{basePage: a.base(w, r), Error: err.Error()}
		w.WriteHeader(http.StatusBadRequest)
		a.render(w, "signup.html", page)
		return
	}

	user, session, err := a.auth.Login(r.Context(), username, password)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.logger.Info("new account %s", user.Username)
	a.setSessionCookie(w, session.Token, int(a.site.SessionTTL.Seconds()))
	flash(w, "Welcome to "+a.site.Name+"!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
