// Package completion renders shell completion scripts for prodl.
package completion

import (
	"fmt"
	"strings"
)

// Shells lists the supported shell names.
var Shells = []string{"bash", "zsh", "fish"}

const (
	commands    = "get fetch history redownload share completion help"
	globalFlags = "-o --out --history-file --status-file --rate-limit --install-engine --log-level --help"
)

// Script returns the completion script for shell.
func Script(shell string) (string, error) {
	switch strings.ToLower(shell) {
	case "bash":
		return bashScript, nil
	case "zsh":
		return zshScript, nil
	case "fish":
		return fishScript(), nil
	}
	return "", fmt.Errorf("unsupported shell: %s (supported: %s)", shell, strings.Join(Shells, ", "))
}

// Usage is printed when no shell is given.
const Usage = `Usage: prodl completion <shell>
Supported shells: bash, zsh, fish

Installation examples:
  Bash: prodl completion bash > ~/.local/share/bash-completion/completions/prodl
  Zsh:  prodl completion zsh > ~/.zsh/completion/_prodl
  Fish: prodl completion fish > ~/.config/fish/completions/prodl.fish
`

var bashScript = `# prodl bash completion
_prodl_completion() {
    local cur prev
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    case "$prev" in
        -o|--out|--history-file|--status-file)
            COMPREPLY=($(compgen -f -- "$cur"))
            return 0
            ;;
        --log-level)
            COMPREPLY=($(compgen -W "debug info warn error" -- "$cur"))
            return 0
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            return 0
            ;;
        history)
            COMPREPLY=($(compgen -W "--clear -n --limit" -- "$cur"))
            return 0
            ;;
        get)
            COMPREPLY=($(compgen -f -X '!*.txt' -- "$cur"))
            return 0
            ;;
    esac

    if [[ "$cur" == -* ]]; then
        COMPREPLY=($(compgen -W "` + globalFlags + `" -- "$cur"))
    else
        COMPREPLY=($(compgen -W "` + commands + `" -- "$cur"))
    fi
}
complete -F _prodl_completion prodl
`

var zshScript = `#compdef prodl
# prodl zsh completion

_prodl() {
    local -a commands
    commands=(
        'get:download videos from TikTok, YouTube or Instagram'
        'fetch:resumable download of a direct URL'
        'history:show recent downloads'
        'redownload:download a history entry again'
        'share:extract URLs from shared text on stdin'
        'completion:print a shell completion script'
    )

    _arguments -C \
        '(-o --out)'{-o,--out}'[output directory]:directory:_files -/' \
        '--history-file[history ledger location]:file:_files' \
        '--status-file[progress status file]:file:_files' \
        '--rate-limit[bytes per second]:rate:' \
        '--install-engine[download yt-dlp if missing]' \
        '--log-level[log level]:level:(debug info warn error)' \
        '1:command:->command' \
        '*::arg:->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                completion) _values 'shell' bash zsh fish ;;
                history) _arguments '--clear[remove every record]' '(-n --limit)'{-n,--limit}'[records to show]:count:' ;;
                get) _files -g '*.txt' ;;
            esac
            ;;
    esac
}

_prodl "$@"
`

func fishScript() string {
	var b strings.Builder
	b.WriteString("# prodl fish completion\n")
	b.WriteString("complete -c prodl -f\n")
	for _, c := range []struct{ name, desc string }{
		{"get", "Download videos"},
		{"fetch", "Resumable download of a direct URL"},
		{"history", "Show recent downloads"},
		{"redownload", "Download a history entry again"},
		{"share", "Download URLs from shared text on stdin"},
		{"completion", "Print a shell completion script"},
	} {
		fmt.Fprintf(&b, "complete -c prodl -n '__fish_use_subcommand' -a %s -d '%s'\n", c.name, c.desc)
	}
	b.WriteString("complete -c prodl -s o -l out -r -F -d 'Output directory'\n")
	b.WriteString("complete -c prodl -l history-file -r -F -d 'History ledger location'\n")
	b.WriteString("complete -c prodl -l status-file -r -F -d 'Progress status file'\n")
	b.WriteString("complete -c prodl -l rate-limit -x -d 'Bytes per second'\n")
	b.WriteString("complete -c prodl -l install-engine -d 'Download yt-dlp if missing'\n")
	b.WriteString("complete -c prodl -l log-level -x -a 'debug info warn error'\n")
	b.WriteString("complete -c prodl -n '__fish_seen_subcommand_from history' -l clear -d 'Remove every record'\n")
	b.WriteString("complete -c prodl -n '__fish_seen_subcommand_from completion' -x -a '" + strings.Join(Shells, " ") + "'\n")
	return b.String()
}
