package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

const (
	separatorWidth = 60
	footerWidth    = 30
)

var (
	linkColor    = color.New(color.FgCyan, color.Underline)
	toolColor    = color.New(color.FgGreen)
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed)
	infoColor    = color.New(color.FgYellow)
	summaryColor = color.New(color.FgMagenta)
)

// Printer writes user-facing output. Diagnostics go to errOut.
type Printer struct {
	out    io.Writer
	errOut io.Writer
}

// NewPrinter returns a Printer writing to out and errOut.
func NewPrinter(out, errOut io.Writer) *Printer {
	return &Printer{out: out, errOut: errOut}
}

// AuthorizationStart announces the OAuth flow.
func (p *Printer) AuthorizationStart() {
	fmt.Fprintln(p.out, "🔐 開始 Gmail OAuth 授權流程...")
}

// AuthorizationURL asks the operator to open url and wait up to timeout.
func (p *Printer) AuthorizationURL(url string, timeout time.Duration) {
	fmt.Fprint(p.out, "\n📧 請用瀏覽器開啟以下網址完成 Gmail 授權：\n\n")
	fmt.Fprint(p.out, "   ")
	linkColor.Fprint(p.out, url)
	fmt.Fprint(p.out, "\n\n")
	infoColor.Fprintf(p.out, "等待授權完成（最多 %s）...\n", humanDuration(timeout))
}

// Connected reports a completed authorization.
func (p *Printer) Connected(connectionID string) {
	successColor.Fprintf(p.out, "✅ Gmail 授權成功！連線 ID：%s\n", connectionID)
}

// AuthorizationFailed reports a failed authorization wait.
func (p *Printer) AuthorizationFailed(err error) {
	errorColor.Fprintf(p.errOut, "❌ 授權等待逾時或失敗：%v\n", err)
	fmt.Fprintln(p.errOut, "請確認已完成瀏覽器中的 OAuth 步驟後重試。")
}

// Banner announces the agent and echoes the task.
func (p *Printer) Banner(query string) {
	fmt.Fprintln(p.out, "🤖 啟動 Gmail Agent...")
	fmt.Fprintf(p.out, "📋 任務：%s\n\n", query)
}

// ToolCounts reports how many tools were fetched and how many are Gmail tools.
func (p *Printer) ToolCounts(total, gmail int) {
	infoColor.Fprintf(p.out, "🔧 已載入 %d 個 Composio 工具（Gmail 相關：%d 個）\n", total, gmail)
}

// Separator writes the rule printed before the answer streams.
func (p *Printer) Separator() {
	fmt.Fprintln(p.out, strings.Repeat("─", separatorWidth))
}

// Text writes model text as-is.
func (p *Printer) Text(text string) {
	fmt.Fprint(p.out, text)
}

// ToolUse writes an inline marker for a tool call.
func (p *Printer) ToolUse(name string) {
	toolColor.Fprintf(p.out, "\n[🔧 呼叫工具：%s]\n", name)
}

// Summary closes the answer with a rule and, when the cost is known, the
// cost and duration of the query.
func (p *Printer) Summary(costUSD *float64, durationMS int64) {
	fmt.Fprintf(p.out, "\n\n%s\n", strings.Repeat("─", footerWidth))
	if costUSD == nil {
		return
	}
	summaryColor.Fprintf(p.out, "✅ 完成 | 費用：$%.4f | 耗時：%dms\n", *costUSD, durationMS)
}

// Done ends the query output.
func (p *Printer) Done() {
	fmt.Fprintln(p.out)
}

// humanDuration renders whole minutes as "N 分鐘" and anything else as a Go duration.
func humanDuration(d time.Duration) string {
	if d > 0 && d%time.Minute == 0 {
		return fmt.Sprintf("%d 分鐘", int(d/time.Minute))
	}
	return d.String()
}
