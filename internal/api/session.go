package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// sessionJar оборачивает стандартный cookie jar и после каждого изменения
// сохраняет cookie сессии в JSON-файл. CLI живёт один вызов на процесс,
// без файла сессия заканчивалась бы вместе с процессом.
type sessionJar struct {
	mu   sync.Mutex
	jar  *cookiejar.Jar
	path string
}

// sessionFile — формат файла сессии: адрес сервера и его cookie.
type sessionFile struct {
	URL     string          `json:"url"`
	Cookies []sessionCookie `json:"cookies"`
}

type sessionCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func newSessionJar(path string) (*sessionJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	s := &sessionJar{jar: jar, path: path}
	s.load()
	return s, nil
}

// load восстанавливает сохранённые cookie. Отсутствующий или повреждённый
// файл означает отсутствие сессии: сервер всё равно перепроверит cookie.
func (s *sessionJar) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}

	var state sessionFile
	if err := json.Unmarshal(data, &state); err != nil {
		return
	}

	u, err := url.Parse(state.URL)
	if err != nil || u.Host == "" {
		return
	}

	cookies := make([]*http.Cookie, 0, len(state.Cookies))
	for _, c := range state.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	s.jar.SetCookies(u, cookies)
}

func (s *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.jar.Cookies(u)
}

func (s *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jar.SetCookies(u, cookies)
	s.persist(u)
}

// persist сохраняет текущее состояние jar для сервера u. Сброшенная сервером
// cookie (sign-out) к этому моменту уже удалена из jar, поэтому файл всегда
// отражает актуальную сессию. Ошибка записи не мешает сессии жить в памяти.
func (s *sessionJar) persist(u *url.URL) {
	state := sessionFile{
		URL:     u.Scheme + "://" + u.Host,
		Cookies: []sessionCookie{},
	}
	for _, c := range s.jar.Cookies(u) {
		state.Cookies = append(state.Cookies, sessionCookie{Name: c.Name, Value: c.Value})
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return
	}

	if dir := filepath.Dir(s.path); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return
	}
	_ = os.Rename(tmp, s.path)
}
