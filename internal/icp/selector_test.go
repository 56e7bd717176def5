package icp

import "testing"

func TestSelectBestPrefersSecurityLeadership(t *testing.T) {
	people := []Person{
		{FirstName: "Carl", LastName: "Chief", Company: "Acme GmbH", JobTitle: "CEO"},
		{FirstName: "Sam", LastName: "Secure", Company: "Acme GmbH", JobTitle: "CISO"},
		{FirstName: "Tina", LastName: "Tech", Company: "Acme GmbH", JobTitle: "CTO"},
	}

	best := SelectBest(people, "Acme GmbH")
	if best == nil || best.JobTitle != "CISO" {
		t.Fatalf("expected the CISO to win, got %+v", best)
	}
}

func TestSelectBestOrdersTitleGroups(t *testing.T) {
	people := []Person{
		{FirstName: "Gerd", LastName: "G", Company: "Acme", JobTitle: "Geschäftsführer"},
		{FirstName: "Ida", LastName: "I", Company: "Acme", JobTitle: "IT-Leiter"},
	}

	best := SelectBest(people, "Acme")
	if best == nil || best.JobTitle != "IT-Leiter" {
		t.Fatalf("IT leadership outranks the CEO group, got %+v", best)
	}
}

func TestSelectBestMatchesGroupsAgainstSeniorities(t *testing.T) {
	people := []Person{
		{FirstName: "Carl", LastName: "Chief", Company: "Acme", JobTitle: "CEO"},
		{FirstName: "Sam", LastName: "Secure", Company: "Acme", JobTitle: "Manager", Seniorities: []string{"CISO"}},
	}

	best := SelectBest(people, "Acme")
	if best == nil || best.FirstName != "Sam" {
		t.Fatalf("a top-group keyword in the seniority tags outranks a lower title match, got %+v", best)
	}
}

func TestSelectBestFiltersOtherCompanies(t *testing.T) {
	people := []Person{
		{FirstName: "Wrong", LastName: "Co", Company: "Globex Inc", JobTitle: "CISO"},
	}

	if best := SelectBest(people, "Acme GmbH"); best != nil {
		t.Fatalf("candidates from other companies must be dropped, got %+v", best)
	}
}

func TestSelectBestIgnoresLegalSuffixes(t *testing.T) {
	people := []Person{
		{FirstName: "Anna", LastName: "A", Company: "Acme", JobTitle: "Compliance Manager"},
	}

	best := SelectBest(people, "Acme GmbH")
	if best == nil || best.FirstName != "Anna" {
		t.Fatalf("suffix-stripped names should match, got %+v", best)
	}
}

func TestSelectBestSeniorityFallback(t *testing.T) {
	people := []Person{
		{FirstName: "Plain", LastName: "P", Company: "Acme", JobTitle: "Accountant"},
		{FirstName: "Vip", LastName: "V", Company: "Acme", JobTitle: "Head of Something", Seniorities: []string{"C-Level"}},
	}

	best := SelectBest(people, "Acme")
	if best == nil || best.FirstName != "Vip" {
		t.Fatalf("seniority fallback should pick the C-Level, got %+v", best)
	}
}

func TestSelectBestFallsBackToFirstCandidate(t *testing.T) {
	people := []Person{
		{FirstName: "First", LastName: "F", Company: "Acme", JobTitle: "Accountant"},
		{FirstName: "Second", LastName: "S", Company: "Acme", JobTitle: "Clerk"},
	}

	best := SelectBest(people, "Acme")
	if best == nil || best.FirstName != "First" {
		t.Fatalf("expected first surviving candidate, got %+v", best)
	}
}

func TestSelectBestEmptyInput(t *testing.T) {
	if best := SelectBest(nil, "Acme"); best != nil {
		t.Fatalf("no candidates must yield nil, got %+v", best)
	}
}

func TestSelectBestUsesCompanyNameField(t *testing.T) {
	people := []Person{
		{FirstName: "Nina", LastName: "N", CompanyName: "Acme GmbH", JobTitle: "CISO"},
	}

	best := SelectBest(people, "Acme")
	if best == nil || best.FirstName != "Nina" {
		t.Fatalf("companyName field should count, got %+v", best)
	}
}
