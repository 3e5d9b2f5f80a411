package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestUTF8Writer(t *testing.T) {
	tests := []struct {
		name   string
		writes [][]byte
		want   string
	}{
		{
			name:   "valid text passes through",
			writes: [][]byte{[]byte("寄件者: Alice")},
			want:   "寄件者: Alice",
		},
		{
			name:   "invalid byte replaced",
			writes: [][]byte{{'a', 0xff, 'b'}},
			want:   "a�b",
		},
		{
			name:   "sequence split across writes",
			writes: [][]byte{[]byte("主")[:2], []byte("主")[2:]},
			want:   "主",
		},
		{
			name:   "truncated sequence at close",
			writes: [][]byte{[]byte("ok"), []byte("主")[:2]},
			want:   "ok�",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewUTF8Writer(&buf)
			for _, b := range tt.writes {
				n, err := w.Write(b)
				require.NoError(t, err)
				assert.Equal(t, len(b), n)
			}
			require.NoError(t, w.Close())
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrinter_Authorization(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut)

	p.AuthorizationStart()
	p.AuthorizationURL("https://connect.example/abc", 3*time.Minute)
	p.Connected("conn_123")
	p.AuthorizationFailed(errors.New("timed out"))

	assert.Equal(t, "🔐 開始 Gmail OAuth 授權流程...\n"+
		"\n📧 請用瀏覽器開啟以下網址完成 Gmail 授權：\n\n"+
		"   https://connect.example/abc\n\n"+
		"等待授權完成（最多 3 分鐘）...\n"+
		"✅ Gmail 授權成功！連線 ID：conn_123\n", out.String())
	assert.Equal(t, "❌ 授權等待逾時或失敗：timed out\n"+
		"請確認已完成瀏覽器中的 OAuth 步驟後重試。\n", errOut.String())
}

func TestPrinter_Query(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut)
	cost := 0.0021

	p.Banner("列出最新 5 封郵件")
	p.ToolCounts(10, 3)
	p.Separator()
	p.Text("Hello")
	p.ToolUse("mcp__composio__GMAIL_FETCH_EMAILS")
	p.Summary(&cost, 1500)
	p.Done()

	want := "🤖 啟動 Gmail Agent...\n" +
		"📋 任務：列出最新 5 封郵件\n\n" +
		"🔧 已載入 10 個 Composio 工具（Gmail 相關：3 個）\n" +
		strings.Repeat("─", 60) + "\n" +
		"Hello" +
		"\n[🔧 呼叫工具：mcp__composio__GMAIL_FETCH_EMAILS]\n" +
		"\n\n" + strings.Repeat("─", 30) + "\n" +
		"✅ 完成 | 費用：$0.0021 | 耗時：1500ms\n" +
		"\n"
	assert.Equal(t, want, out.String())
	assert.Empty(t, errOut.String())
}

func TestPrinter_SummaryWithoutCost(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, &out)

	p.Summary(nil, 1500)

	assert.Equal(t, "\n\n"+strings.Repeat("─", 30)+"\n", out.String())
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "3 分鐘", humanDuration(180*time.Second))
	assert.Equal(t, "1m30s", humanDuration(90*time.Second))
	assert.Equal(t, "30ms", humanDuration(30*time.Millisecond))
}
