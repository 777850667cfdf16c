// Package dre builds Brazilian DRE (income statement) views over
// categorized transactions.
package dre

// Group identifies a DRE line.
type Group string

// DRE group codes. Codes with an Order below 100 appear on the statement in
// that order; OUTROS collects mapped-but-unplaced categories and EMP/TRANSF
// are neutral buckets that never enter the derived totals.
const (
	GroupRoB    Group = "RoB"  // Receita operacional bruta
	GroupTDCF   Group = "TDCF" // Tributos e deducoes
	GroupRO     Group = "RO"   // Receita operacional (derived)
	GroupMP     Group = "MP"   // Materia prima
	GroupCV     Group = "CV"   // Custos variaveis
	GroupMC     Group = "MC"   // Margem de contribuicao (derived)
	GroupCF     Group = "CF"   // Custos fixos
	GroupEBIT   Group = "EBIT" // Resultado operacional (derived)
	GroupRNOP   Group = "RNOP" // Receitas nao operacionais
	GroupDNOP   Group = "DNOP" // Despesas nao operacionais
	GroupLAIR   Group = "LAIR" // Lucro antes de IR (derived)
	GroupIRPJ   Group = "IRPJ" // Imposto de renda PJ
	GroupCSLL   Group = "CSLL" // Contribuicao social
	GroupLLE    Group = "LLE"  // Lucro liquido do exercicio (derived)
	GroupOther  Group = "OUTROS"
	GroupEmp    Group = "EMP"    // Emprestimos (neutral)
	GroupTransf Group = "TRANSF" // Transferencias (neutral)
)

// GroupDef describes one DRE line.
type GroupDef struct {
	Code    Group
	Label   string
	Sign    int // +1 adds, -1 subtracts, 0 neutral
	Order   int
	Derived bool
}

// Groups is the canonical DRE line table, in statement order.
var Groups = []GroupDef{
	{Code: GroupRoB, Label: "Receita Operacional Bruta", Sign: 1, Order: 10},
	{Code: GroupTDCF, Label: "Tributos e Deduções", Sign: -1, Order: 20},
	{Code: GroupRO, Label: "Receita Operacional", Sign: 1, Order: 25, Derived: true},
	{Code: GroupMP, Label: "Matéria-Prima", Sign: -1, Order: 30},
	{Code: GroupCV, Label: "Custos Variáveis", Sign: -1, Order: 35},
	{Code: GroupMC, Label: "Margem de Contribuição", Sign: 1, Order: 38, Derived: true},
	{Code: GroupCF, Label: "Custos Fixos", Sign: -1, Order: 40},
	{Code: GroupEBIT, Label: "Resultado Operacional", Sign: 1, Order: 45, Derived: true},
	{Code: GroupRNOP, Label: "Receitas Não Operacionais", Sign: 1, Order: 50},
	{Code: GroupDNOP, Label: "Despesas Não Operacionais", Sign: -1, Order: 60},
	{Code: GroupLAIR, Label: "Lucro Antes do IR", Sign: 1, Order: 70, Derived: true},
	{Code: GroupIRPJ, Label: "IRPJ", Sign: -1, Order: 80},
	{Code: GroupCSLL, Label: "CSLL", Sign: -1, Order: 85},
	{Code: GroupLLE, Label: "Lucro Líquido do Exercício", Sign: 1, Order: 90, Derived: true},
	{Code: GroupOther, Label: "Outros", Sign: 0, Order: 999},
	{Code: GroupEmp, Label: "Empréstimos", Sign: 0, Order: 1000},
	{Code: GroupTransf, Label: "Transferências", Sign: 0, Order: 1001},
}

var groupIndex = func() map[Group]GroupDef {
	idx := make(map[Group]GroupDef, len(Groups))
	for _, g := range Groups {
		idx[g.Code] = g
	}
	return idx
}()

// Lookup returns the definition for a group code.
func Lookup(code Group) (GroupDef, bool) {
	def, ok := groupIndex[code]
	return def, ok
}

// Valid reports whether code names a known, assignable DRE group. Derived
// lines are computed, never assigned to a category.
func Valid(code string) bool {
	def, ok := groupIndex[Group(code)]
	return ok && !def.Derived
}

// operating groups carry the company's core revenue and cost flows.
var operatingGroups = map[Group]bool{
	GroupRoB:  true,
	GroupTDCF: true,
	GroupMP:   true,
	GroupCV:   true,
	GroupCF:   true,
}

// IsOperatingGroup reports whether the group belongs to the operating
// section of the statement.
func IsOperatingGroup(code string) bool {
	return operatingGroups[Group(code)]
}

// IsGrossRevenueGroup reports whether the group is gross operating revenue.
func IsGrossRevenueGroup(code string) bool {
	return Group(code) == GroupRoB
}
