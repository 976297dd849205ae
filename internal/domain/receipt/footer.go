package receipt

import "strconv"

// FooterLines is the fixed organisation block printed above the page number.
var FooterLines = [4]string{
	"Secretaria Municipal de Desenvolvimento Rural de Corrente - PI",
	"Avenida Manoel Lourenço Cavalcante, 600 - Nova Corrente",
	"CEP: 64980-000 - Corrente/PI",
	"Tel: (89) 3573-1053 | Email: prefeitura.corrente.pi@gmail.com",
}

// Footer is stamped on a page once the final page order is known.
type Footer struct {
	PageNumber int
}

// Lines returns the five centred footer lines
func (f Footer) Lines() []string {
	lines := make([]string, 0, len(FooterLines)+1)
	lines = append(lines, FooterLines[:]...)
	return append(lines, "Página "+strconv.Itoa(f.PageNumber))
}

// IsStamped reports whether Finalize has numbered the page
func (f Footer) IsStamped() bool {
	return f.PageNumber > 0
}
