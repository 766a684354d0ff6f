package domain

// CSPConfig é a configuração imutável da Content-Security-Policy.
//
// Ela é montada uma única vez na inicialização (a partir do ambiente) e
// injetada no pipeline. Não existe cache global mutável: para testar basta
// construir instâncias alternativas.
type CSPConfig struct {
	ConnectDomains []string
	ScriptDomains  []string
	StyleDomains   []string
	FontDomains    []string
	ImgDomains     []string

	ReportURI  string
	ReportOnly bool

	// Development libera unsafe-inline/unsafe-eval em script-src e localhost
	// em connect-src para suportar hot reload.
	Development bool
}
