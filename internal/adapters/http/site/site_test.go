package site

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestEmbeddedDashboard(t *testing.T) {
	Convey("Given the embedded dashboard", t, func() {
		h, err := New("")
		So(err, ShouldBeNil)

		Convey("When requesting a stylesheet", func() {
			w := get(h, "/app.css")

			Convey("Then the asset is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/css")
			})
		})

		Convey("When requesting a client-side route", func() {
			w := get(h, "/pokemon/bulbasaur")

			Convey("Then index.html is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
				So(w.Body.String(), ShouldContainSubstring, "Solo Run Stats Hub")
			})
		})

		Convey("When requesting the root", func() {
			w := get(h, "/")

			Convey("Then index.html is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "/api/stats/overview")
			})
		})

		Convey("When the path tries to escape the root", func() {
			w := get(h, "/../../etc/passwd")

			Convey("Then it still lands on index.html", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "Solo Run Stats Hub")
			})
		})
	})
}

func TestStaticDirOverride(t *testing.T) {
	Convey("Given a static directory", t, func() {
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>custom build</html>"), 0o600), ShouldBeNil)

		Convey("When serving an unknown route", func() {
			h, err := New(dir)
			So(err, ShouldBeNil)
			w := get(h, "/statistics")

			Convey("Then the directory's index.html is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "custom build")
			})
		})

		Convey("When the directory has no index.html", func() {
			_, err := New(t.TempDir())

			Convey("Then construction fails", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, ErrServe)
			})
		})
	})
}
