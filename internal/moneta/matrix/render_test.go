package matrix

import "testing"

func TestMarkdownToHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bold",
			in:   "Reply **yes** to confirm",
			want: "Reply <strong>yes</strong> to confirm\n",
		},
		{
			name: "inline code",
			in:   "send `help` for the list",
			want: "send <code>help</code> for the list\n",
		},
		{
			name: "unmatched delimiter left alone",
			in:   "a `b",
			want: "a `b\n",
		},
		{
			name: "code block escapes html",
			in:   "```\n<a> & b\n```",
			want: "<pre><code>&lt;a&gt; &amp; b\n</code></pre>",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := markdownToHTML(tc.in)
			// Newlines render as <br/>.
			want := replaceNewlines(tc.want)
			if got != want {
				t.Errorf("markdownToHTML(%q) = %q, want %q", tc.in, got, want)
			}
		})
	}
}

func replaceNewlines(s string) string {
	out := ""
	for _, r := range s {
		if r == '\n' {
			out += "<br/>"
		} else {
			out += string(r)
		}
	}
	return out
}
