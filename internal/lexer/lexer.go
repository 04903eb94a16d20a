// Package lexer turns a source string into a lazily-produced stream of
// tokens, tracking line/column positions by remembering the byte
// offset where the current line began rather than maintaining a
// running column counter.
package lexer

import "cclox-vm/internal/token"

// Scanner produces tokens on demand from a source buffer. It never
// allocates beyond a per-token lexeme slice into that buffer; callers
// must keep the source alive for as long as the Scanner (and any
// tokens it produced) are in use.
type Scanner struct {
	source string
	offset int // index of the next unread byte
	line   int
	lineStart int // offset of the first byte of the current line

	tokenOffset int
	tokenLine   int
	tokenColumn int
}

// New creates a Scanner over source, with the first line numbered
// startingLine (1-based REPL inputs bump this between calls).
func New(source string, startingLine int) *Scanner {
	return &Scanner{source: source, line: startingLine, lineStart: 0}
}

// ScanToken returns the next token. Once the input is exhausted every
// further call returns an Eof token.
func (s *Scanner) ScanToken() token.Token {
	if unterminated := s.skipWhitespaceAndComments(); unterminated {
		s.tokenOffset = s.offset
		s.tokenLine = s.line
		s.tokenColumn = s.offset - s.lineStart + 1
		return s.errorToken("Unterminated block comment.")
	}

	s.tokenOffset = s.offset
	s.tokenLine = s.line
	s.tokenColumn = s.offset - s.lineStart + 1

	if s.isAtEnd() {
		return s.makeToken(token.Eof)
	}

	c := s.advance()

	switch {
	case isDigit(c):
		return s.scanNumber()
	case isAlpha(c):
		return s.scanIdentifier()
	}

	switch c {
	case '(':
		return s.makeToken(token.LeftParen)
	case ')':
		return s.makeToken(token.RightParen)
	case '{':
		return s.makeToken(token.LeftBrace)
	case '}':
		return s.makeToken(token.RightBrace)
	case ',':
		return s.makeToken(token.Comma)
	case '.':
		return s.makeToken(token.Dot)
	case '-':
		return s.makeToken(token.Minus)
	case '+':
		return s.makeToken(token.Plus)
	case ';':
		return s.makeToken(token.Semicolon)
	case '*':
		return s.makeToken(token.Star)
	case '?':
		return s.makeToken(token.Question)
	case ':':
		return s.makeToken(token.Colon)
	case '/':
		return s.makeToken(token.Slash)
	case '!':
		if s.advanceIf('=') {
			return s.makeToken(token.BangEqual)
		}
		return s.makeToken(token.Bang)
	case '=':
		if s.advanceIf('=') {
			return s.makeToken(token.EqualEqual)
		}
		return s.makeToken(token.Equal)
	case '>':
		if s.advanceIf('=') {
			return s.makeToken(token.GreaterEqual)
		}
		return s.makeToken(token.Greater)
	case '<':
		if s.advanceIf('=') {
			return s.makeToken(token.LessEqual)
		}
		return s.makeToken(token.Less)
	case '"':
		return s.scanString()
	}

	return s.errorToken("Unexpected character.")
}

// skipWhitespaceAndComments consumes whitespace, line comments, and
// block comments. It returns true if it hit end-of-input inside an
// unterminated block comment.
func (s *Scanner) skipWhitespaceAndComments() bool {
	for {
		switch s.peek() {
		case ' ', '\t', '\r':
			s.advance()
		case '\n':
			s.advance()
		case '/':
			if s.peekAt(1) == '/' {
				for s.peek() != '\n' && !s.isAtEnd() {
					s.advance()
				}
			} else if s.peekAt(1) == '*' {
				s.advance() // '/'
				s.advance() // '*'
				if !s.skipBlockComment() {
					return true
				}
			} else {
				return false
			}
		default:
			return false
		}
	}
}

// skipBlockComment consumes up to and including the closing "*/". It
// returns false if it ran off the end of input first.
func (s *Scanner) skipBlockComment() bool {
	for !s.isAtEnd() {
		if s.peek() == '*' && s.peekAt(1) == '/' {
			s.advance()
			s.advance()
			return true
		}
		s.advance()
	}
	return false
}

func (s *Scanner) scanString() token.Token {
	for s.peek() != '"' && !s.isAtEnd() {
		s.advance()
	}
	if s.isAtEnd() {
		s.tokenLine = s.line
		s.tokenColumn = s.offset - s.lineStart + 1
		return s.errorToken("Unterminated string.")
	}
	s.advance() // closing quote
	return s.makeToken(token.String)
}

func (s *Scanner) scanNumber() token.Token {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	return s.makeToken(token.Number)
}

func (s *Scanner) scanIdentifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	return s.makeToken(token.LookupIdentifier(s.lexeme()))
}

func (s *Scanner) makeToken(kind token.Kind) token.Token {
	lexeme := s.lexeme()
	if kind == token.Eof {
		lexeme = ""
	}
	return token.Token{
		Kind:   kind,
		Lexeme: lexeme,
		Position: token.Position{
			Line:   s.tokenLine,
			Column: s.tokenColumn,
		},
	}
}

func (s *Scanner) errorToken(message string) token.Token {
	return token.Token{
		Kind:   token.Error,
		Lexeme: message,
		Position: token.Position{
			Line:   s.tokenLine,
			Column: s.tokenColumn,
		},
	}
}

func (s *Scanner) lexeme() string {
	return s.source[s.tokenOffset:s.offset]
}

func (s *Scanner) isAtEnd() bool {
	return s.offset >= len(s.source)
}

func (s *Scanner) peek() byte {
	if s.isAtEnd() {
		return 0
	}
	return s.source[s.offset]
}

func (s *Scanner) peekAt(ahead int) byte {
	idx := s.offset + ahead
	if idx >= len(s.source) {
		return 0
	}
	return s.source[idx]
}

func (s *Scanner) advance() byte {
	c := s.source[s.offset]
	s.offset++
	// A non-final newline bumps the line counter; a trailing newline
	// at end-of-input leaves Eof reporting the last line rather than
	// an empty one past it.
	if c == '\n' && !s.isAtEnd() {
		s.line++
		s.lineStart = s.offset
	}
	return c
}

func (s *Scanner) advanceIf(expected byte) bool {
	if s.peek() != expected {
		return false
	}
	s.advance()
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}
