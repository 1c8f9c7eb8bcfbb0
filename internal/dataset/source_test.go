package dataset

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/answer-engine/internal/resilience"
)

func testSource() *Source {
	return NewSource(SourceOptions{
		Timeout: 5 * time.Second,
		Retry:   resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1},
	})
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// tableServer is a passive-mode FTP server that serves files from memory.
type tableServer struct {
	ln    net.Listener
	files map[string]string
	wg    sync.WaitGroup
}

func newTableServer(t *testing.T, files map[string]string) *tableServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &tableServer{ln: ln, files: files}
	s.wg.Add(1)
	go s.accept()
	t.Cleanup(func() {
		ln.Close() //nolint:errcheck
		s.wg.Wait()
	})
	return s
}

func (s *tableServer) url(path string) string {
	return "ftp://" + s.ln.Addr().String() + path
}

func (s *tableServer) accept() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.session(conn)
	}
}

func (s *tableServer) session(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()                                 //nolint:errcheck
	conn.SetDeadline(time.Now().Add(10 * time.Second)) //nolint:errcheck

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	reply := func(format string, args ...any) {
		fmt.Fprintf(w, format+"\r\n", args...) //nolint:errcheck
		w.Flush()                              //nolint:errcheck
	}
	reply("220 ready")

	var data net.Listener
	defer func() {
		if data != nil {
			data.Close() //nolint:errcheck
		}
	}()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch strings.ToUpper(cmd) {
		case "USER", "PASS":
			reply("230 logged in")
		case "FEAT":
			reply("211-Features:\r\n UTF8\r\n211 End")
		case "TYPE", "OPTS":
			reply("200 ok")
		case "EPSV", "PASV":
			if data, err = net.Listen("tcp", "127.0.0.1:0"); err != nil {
				reply("425 no data connection")
				continue
			}
			port := data.Addr().(*net.TCPAddr).Port
			if strings.EqualFold(cmd, "EPSV") {
				reply("229 Entering Extended Passive Mode (|||%d|)", port)
			} else {
				reply("227 Entering Passive Mode (127,0,0,1,%d,%d)", port/256, port%256)
			}
		case "RETR":
			content, ok := s.files[arg]
			if data == nil || !ok {
				reply("550 not found")
				continue
			}
			reply("150 opening")
			dc, err := data.Accept()
			if err != nil {
				reply("425 no data connection")
				continue
			}
			io.WriteString(dc, content) //nolint:errcheck
			dc.Close()                  //nolint:errcheck
			data.Close()                //nolint:errcheck
			data = nil
			reply("226 done")
		case "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 not implemented")
		}
	}
}

// writeXLSX saves a single-sheet workbook of rows and returns its path.
func writeXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	p := filepath.Join(t.TempDir(), "table.xlsx")
	require.NoError(t, f.Save(p))
	return p
}

func TestReadTable_LocalCSV(t *testing.T) {
	p := writeFile(t, "q.csv", "\ufeffQuestion,Answer\n\"What is\n2+2?\",4\nshort row\n")
	tbl, err := testSource().ReadTable(context.Background(), p)
	require.NoError(t, err)

	assert.True(t, tbl.Has("question"))
	assert.True(t, tbl.Has("ANSWER"))
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "What is\n2+2?", tbl.Get(0, "question"))
	assert.Equal(t, "", tbl.Get(1, "answer"))
	assert.Equal(t, "", tbl.Get(0, "missing"))

	err = tbl.Require("question", "context")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "context"`)
}

func TestReadTable_FileURL(t *testing.T) {
	p := writeFile(t, "q.csv", "question\nA?\n")
	tbl, err := testSource().ReadTable(context.Background(), "file://"+p)
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 1)
}

func TestReadTable_XLSX(t *testing.T) {
	p := writeXLSX(t, [][]string{{"question", "answer"}, {"One plus one?", "2"}})
	tbl, err := testSource().ReadTable(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "One plus one?", tbl.Get(0, "question"))
	assert.Equal(t, "2", tbl.Get(0, "answer"))
}

func TestReadTable_Empty(t *testing.T) {
	_, err := testSource().ReadTable(context.Background(), writeFile(t, "e.csv", ""))
	assert.Error(t, err)
}

func TestOpen_Errors(t *testing.T) {
	s := testSource()
	_, err := s.Open(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)

	_, err = s.Open(context.Background(), "s3://bucket/key.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}

func TestOpen_HTTPRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "answer-engine/1.0", r.Header.Get("User-Agent"))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "question\nRemote?\n") //nolint:errcheck
	}))
	defer srv.Close()

	qs, err := testSource().LoadQuestions(context.Background(), srv.URL+"/questions.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"Remote?"}, qs)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpen_HTTPPermanentStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testSource().Open(context.Background(), srv.URL+"/missing.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpen_FTP(t *testing.T) {
	srv := newTableServer(t, map[string]string{"/pub/train.csv": "question,answer\nTwo?,2\n"})

	solved, err := testSource().LoadSolved(context.Background(), srv.url("/pub/train.csv"))
	require.NoError(t, err)
	require.Len(t, solved, 1)
	assert.Equal(t, "Two?", solved[0].Question)
	assert.Equal(t, "2", solved[0].Answer)
}

func TestOpen_FTPMissingFile(t *testing.T) {
	srv := newTableServer(t, map[string]string{})
	_, err := testSource().Open(context.Background(), srv.url("/pub/none.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp retrieve")
}

func TestLoadQuestions_SkipsBlank(t *testing.T) {
	p := writeFile(t, "q.csv", "id,question\n1,First?\n2,  \n3,Third?\n")
	qs, err := testSource().LoadQuestions(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"First?", "Third?"}, qs)

	_, err = testSource().LoadQuestions(context.Background(), writeFile(t, "x.csv", "prompt\nhi\n"))
	assert.Error(t, err)
}

func TestLoadSolved_SkipsIncomplete(t *testing.T) {
	p := writeFile(t, "s.csv", "question,answer\nA?,1\nB?,\n,3\n")
	solved, err := testSource().LoadSolved(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, solved, 1)
	assert.Equal(t, "A?", solved[0].Question)
}
