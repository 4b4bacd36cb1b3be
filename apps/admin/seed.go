package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/catalog"
	"github.com/trezcool/simcatalog/core/roadmap"
)

type (
	seedArea struct {
		name     string
		subareas []string
	}

	seedGroup struct {
		group   catalog.NewGroup
		areas   []seedArea
		roadmap roadmap.NewRoadmap
	}

	seedSimulator struct {
		codeBase, area, subarea string
		discipline              catalog.NewDiscipline
	}
)

var (
	seedGroups = []seedGroup{
		{
			group: catalog.NewGroup{
				Name:     "Simuladores de Matemática",
				Context:  "Simuladores educacionais para ensino de matemática básica e avançada",
				CodeBase: "MATH",
			},
			areas:   []seedArea{{name: "Ciências Exatas", subareas: []string{"Matemática", "Estatística"}}},
			roadmap: roadmap.NewRoadmap{Status: roadmap.StatusLive, Reach: 80, Impact: 70, Confidence: 90, Effort: 40},
		},
		{
			group: catalog.NewGroup{
				Name:     "Simuladores de Física",
				Context:  "Simuladores para experimentos virtuais de física",
				CodeBase: "PHYS",
			},
			areas:   []seedArea{{name: "Ciências Exatas", subareas: []string{"Física"}}},
			roadmap: roadmap.NewRoadmap{Status: roadmap.StatusPilot, Reach: 60, Impact: 75, Confidence: 80, Effort: 50},
		},
		{
			group: catalog.NewGroup{
				Name:     "Simuladores de Química",
				Context:  "Laboratórios virtuais de química e experimentos",
				CodeBase: "CHEM",
			},
			areas:   []seedArea{{name: "Ciências Exatas", subareas: []string{"Química"}}},
			roadmap: roadmap.NewRoadmap{Status: roadmap.StatusIdea, Reach: 40, Impact: 50, Confidence: 60, Effort: 30},
		},
		{
			group: catalog.NewGroup{
				Name:     "Simuladores de Programação",
				Context:  "Ambientes de aprendizado de programação e algoritmos",
				CodeBase: "PROG",
			},
			areas: []seedArea{{
				name:     "Tecnologia da Informação",
				subareas: []string{"Programação", "Banco de Dados", "Redes de Computadores", "Inteligência Artificial"},
			}},
			roadmap: roadmap.NewRoadmap{Status: roadmap.StatusPrototype, Reach: 70, Impact: 80, Confidence: 70, Effort: 60},
		},
		{
			group: catalog.NewGroup{
				Name:     "Simuladores de Biologia",
				Context:  "Simuladores para estudo de biologia e anatomia",
				CodeBase: "BIO",
			},
			areas: []seedArea{{
				name:     "Ciências Biológicas",
				subareas: []string{"Biologia", "Medicina", "Enfermagem", "Farmácia"},
			}},
			roadmap: roadmap.NewRoadmap{Status: roadmap.StatusIdea, Reach: 50, Impact: 60, Confidence: 65, Effort: 20},
		},
	}

	seedSimulators = []seedSimulator{
		{
			codeBase: "MATH", area: "Ciências Exatas", subarea: "Matemática",
			discipline: catalog.NewDiscipline{
				Discipline:         "Cálculo Diferencial e Integral",
				LearningObjectives: "Compreender os conceitos fundamentais de derivadas e integrais, aplicando-os em problemas práticos.",
				GameMechanics:      "Sistema de níveis progressivos com exercícios interativos, feedback imediato e gamificação.",
				KPIs:               "Taxa de conclusão dos exercícios, tempo médio de resolução, precisão nas respostas.",
				Syllabus:           "<h2>Ementa do Curso</h2><ul><li>Limites e continuidade</li><li>Derivadas e suas aplicações</li><li>Integrais definidas e indefinidas</li></ul>",
				DevObjectives:      "<h2>Objetivos de Desenvolvimento</h2><ul><li>Interface básica do simulador</li><li>Visualizações gráficas</li></ul>",
				IsPublished:        true,
			},
		},
		{
			codeBase: "PHYS", area: "Ciências Exatas", subarea: "Física",
			discipline: catalog.NewDiscipline{
				Discipline:         "Mecânica Clássica",
				LearningObjectives: "Entender os princípios da mecânica newtoniana através de simulações interativas.",
				GameMechanics:      "Simulações de laboratório virtual com parâmetros ajustáveis e visualização em tempo real.",
				KPIs:               "Número de experimentos realizados, precisão nas previsões, tempo de aprendizado.",
				Syllabus:           "<h2>Ementa do Curso</h2><ul><li>Leis de Newton</li><li>Energia e trabalho</li><li>Momento linear e colisões</li></ul>",
				DevObjectives:      "<h2>Objetivos de Desenvolvimento</h2><p>Criar um laboratório virtual de física com simulações realistas.</p>",
				IsPublished:        true,
			},
		},
		{
			codeBase: "PROG", area: "Tecnologia da Informação", subarea: "Programação",
			discipline: catalog.NewDiscipline{
				Discipline:         "Algoritmos e Estruturas de Dados",
				LearningObjectives: "Dominar algoritmos fundamentais e estruturas de dados através de visualizações interativas.",
				GameMechanics:      "Editor de código integrado com visualização de execução passo a passo.",
				KPIs:               "Número de algoritmos implementados, eficiência das soluções, tempo de debug.",
				Syllabus:           "<h2>Ementa do Curso</h2><p>Algoritmos e estruturas de dados com visualizações interativas.</p>",
				DevObjectives:      "<h2>Objetivos de Desenvolvimento</h2><p>Desenvolver um ambiente de programação visual e interativo.</p>",
			},
		},
	}
)

// seed loads the demo catalog. Existing records are left untouched, so it can be run repeatedly.
func (cli *commandLine) seed() error {
	ctx := context.Background()
	var created int

	groups, err := cli.catalogSvc.QueryGroups(ctx)
	if err != nil {
		return err
	}
	roadmaps, err := cli.roadmapSvc.Query(ctx)
	if err != nil {
		return err
	}
	hasRoadmap := make(map[string]bool, len(roadmaps))
	for _, r := range roadmaps {
		hasRoadmap[r.GroupID] = true
	}

	// codeBase -> area name -> subarea name -> placement
	type placement struct{ groupID, areaID, subareaID string }
	placements := make(map[string]map[string]map[string]placement)

	for _, sg := range seedGroups {
		var g catalog.Group
		for _, gd := range groups {
			if gd.CodeBase == sg.group.CodeBase {
				g = gd.Group
			}
		}
		if g.ID == "" {
			if g, err = cli.catalogSvc.CreateGroup(ctx, sg.group); err != nil {
				return errors.Wrapf(err, "creating group %s", sg.group.CodeBase)
			}
			created++
		}
		placements[g.CodeBase] = make(map[string]map[string]placement)

		for _, sa := range sg.areas {
			a, n, err := cli.ensureArea(ctx, g.ID, sa.name)
			if err != nil {
				return err
			}
			created += n
			placements[g.CodeBase][a.Name] = make(map[string]placement)

			for _, name := range sa.subareas {
				s, n, err := cli.ensureSubarea(ctx, a.ID, name)
				if err != nil {
					return err
				}
				created += n
				placements[g.CodeBase][a.Name][s.Name] = placement{groupID: g.ID, areaID: a.ID, subareaID: s.ID}
			}
		}

		if !hasRoadmap[g.ID] {
			nr := sg.roadmap
			nr.GroupID = g.ID
			if _, err = cli.roadmapSvc.Create(ctx, nr); err != nil {
				return errors.Wrapf(err, "creating roadmap of %s", g.CodeBase)
			}
			created++
		}
	}

	disciplines, err := cli.catalogSvc.QueryDisciplines(ctx, true)
	if err != nil {
		return err
	}
	for _, ss := range seedSimulators {
		p := placements[ss.codeBase][ss.area][ss.subarea]
		if hasDiscipline(disciplines, p.groupID, ss.discipline.Discipline) {
			continue
		}
		nd := ss.discipline
		nd.GroupID, nd.AreaID, nd.SubareaID = p.groupID, p.areaID, p.subareaID
		d, err := cli.catalogSvc.CreateDiscipline(ctx, nd)
		if err != nil {
			return errors.Wrapf(err, "creating simulator %s", nd.Discipline)
		}
		fmt.Fprintf(cli.out, "simulator %s - %s\n", d.Code, d.Discipline)
		created++
	}

	fmt.Fprintf(cli.out, "seed done: %d records created\n", created)
	return nil
}

func (cli *commandLine) ensureArea(ctx context.Context, groupID, name string) (catalog.Area, int, error) {
	areas, err := cli.catalogSvc.QueryAreas(ctx, groupID)
	if err != nil {
		return catalog.Area{}, 0, err
	}
	for _, a := range areas {
		if a.Name == name {
			return a, 0, nil
		}
	}
	a, err := cli.catalogSvc.CreateArea(ctx, catalog.NewArea{GroupID: groupID, Name: name, Slug: core.Slugify(name)})
	if err != nil {
		return catalog.Area{}, 0, errors.Wrapf(err, "creating area %s", name)
	}
	return a, 1, nil
}

func (cli *commandLine) ensureSubarea(ctx context.Context, areaID, name string) (catalog.Subarea, int, error) {
	subareas, err := cli.catalogSvc.QuerySubareas(ctx, areaID)
	if err != nil {
		return catalog.Subarea{}, 0, err
	}
	for _, s := range subareas {
		if s.Name == name {
			return s, 0, nil
		}
	}
	s, err := cli.catalogSvc.CreateSubarea(ctx, catalog.NewSubarea{AreaID: areaID, Name: name})
	if err != nil {
		return catalog.Subarea{}, 0, errors.Wrapf(err, "creating subarea %s", name)
	}
	return s, 1, nil
}

func hasDiscipline(ds []catalog.Discipline, groupID, name string) bool {
	for _, d := range ds {
		if d.GroupID == groupID && d.Discipline == name {
			return true
		}
	}
	return false
}
